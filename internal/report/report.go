// Package report renders processed listing rows as CSV for sellers who
// review their inventory in a spreadsheet.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cardlister/cardlister/internal/pipeline"
)

var headers = []string{
	"ItemID", "Title", "ListingPrice", "Currency",
	"MatchedCard", "MatchedSet", "Confidence",
	"CatalogPrice", "PercentDeviation", "Unconverted",
}

// WriteCSV renders rows as a CSV document. Cell values pass through
// formula escaping because the output is opened in spreadsheets that
// execute leading "=" cells.
func WriteCSV(w io.Writer, rows []pipeline.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(escapeRow(headers)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Listing.ItemID,
			row.Listing.Title,
			formatPrice(row.Listing.Price),
			row.Listing.Currency,
			"", "", string(row.Match.Confidence),
			"", "", "",
		}
		if row.Match.Card != nil {
			record[4] = row.Match.Card.Name
			record[5] = row.Match.Card.SetName
		}
		if cmp := row.Comparison; cmp != nil {
			record[7] = formatPrice(cmp.CatalogPrice)
			if cmp.PercentDeviation != nil {
				record[8] = formatPrice(*cmp.PercentDeviation)
			}
			record[9] = strconv.FormatBool(cmp.Unconverted)
		}
		if err := cw.Write(escapeRow(record)); err != nil {
			return fmt.Errorf("write row %s: %w", row.Listing.ItemID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// EscapeCell neutralizes CSV formula injection. A cell starting with a
// formula trigger gets a leading single quote, which spreadsheets render
// as plain text.
func EscapeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '|', '%', '\t', '\r', '\n':
		return "'" + value
	}
	return value
}

func escapeRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCell(cell)
	}
	return escaped
}

// Filename builds a download filename from a label, stripped of path
// separators.
func Filename(label string) string {
	label = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		return r
	}, label)
	return "listings-" + label + ".csv"
}
