// Package titles extracts a structured card identity from free-text
// marketplace listing titles. Resellers phrase titles however they like,
// so extraction is best-effort: any combination of fields may come back
// empty and callers fall through to name search.
package titles

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cardlister/cardlister/internal/model"
)

// cardNumberRe matches card numbers like "4/64" or "095/203". Only the
// numerator identifies the card within a set.
var cardNumberRe = regexp.MustCompile(`(\d{1,3})/\d{1,3}`)

// knownSet maps a printed set name to its catalog set ID.
type knownSet struct {
	Name string
	ID   string
}

// knownSets lists the sets we can recognize in a title. The declaration
// order is arbitrary; matching order is by descending name length (see
// init) so that a specific name like "EX Ruby & Sapphire" is tried
// before a generic one like "EX" that it contains.
var knownSets = []knownSet{
	{"Base Set 2", "base4"},
	{"Base Set", "base1"},
	{"Jungle", "base2"},
	{"Fossil", "base3"},
	{"Team Rocket", "base5"},
	{"Gym Heroes", "gym1"},
	{"Gym Challenge", "gym2"},
	{"Neo Genesis", "neo1"},
	{"Neo Discovery", "neo2"},
	{"Neo Revelation", "neo3"},
	{"Neo Destiny", "neo4"},
	{"Legendary Collection", "base6"},
	{"Expedition", "ecard1"},
	{"Aquapolis", "ecard2"},
	{"Skyridge", "ecard3"},
	{"EX Ruby & Sapphire", "ex1"},
	{"EX Sandstorm", "ex2"},
	{"EX Dragon", "ex3"},
	{"EX Team Magma vs Team Aqua", "ex4"},
	{"EX Hidden Legends", "ex5"},
	{"EX FireRed & LeafGreen", "ex6"},
	{"EX Team Rocket Returns", "ex7"},
	{"EX Deoxys", "ex8"},
	{"EX Emerald", "ex9"},
	{"EX Unseen Forces", "ex10"},
	{"EX Delta Species", "ex11"},
	{"EX", "ex1"},
	{"Evolutions", "xy12"},
	{"Team Up", "sm9"},
	{"Unified Minds", "sm11"},
	{"Cosmic Eclipse", "sm12"},
	{"Hidden Fates", "sm115"},
	{"Sword & Shield", "swsh1"},
	{"Rebel Clash", "swsh2"},
	{"Darkness Ablaze", "swsh3"},
	{"Vivid Voltage", "swsh4"},
	{"Battle Styles", "swsh5"},
	{"Chilling Reign", "swsh6"},
	{"Evolving Skies", "swsh7"},
	{"Fusion Strike", "swsh8"},
	{"Brilliant Stars", "swsh9"},
	{"Astral Radiance", "swsh10"},
	{"Lost Origin", "swsh11"},
	{"Silver Tempest", "swsh12"},
	{"Crown Zenith", "swsh12pt5"},
	{"Celebrations", "cel25"},
	{"Scarlet & Violet", "sv1"},
	{"Paldea Evolved", "sv2"},
	{"Obsidian Flames", "sv3"},
	{"151", "sv3pt5"},
	{"Paradox Rift", "sv4"},
	{"Paldean Fates", "sv4pt5"},
	{"Temporal Forces", "sv5"},
	{"Twilight Masquerade", "sv6"},
	{"Shrouded Fable", "sv6pt5"},
	{"Stellar Crown", "sv7"},
	{"Surging Sparks", "sv8"},
	{"Prismatic Evolutions", "sv8pt5"},
}

func init() {
	// Longest-name-first is a matching invariant, not an optimization:
	// a shorter name contained in a longer one must never win first.
	sort.SliceStable(knownSets, func(i, j int) bool {
		return len(knownSets[i].Name) > len(knownSets[j].Name)
	})
}

// Parse extracts a card identity from a listing title. Fields are
// independent: a title with no recognizable set name still yields
// whatever card number was found, and vice versa.
func Parse(title string) model.CardIdentity {
	var id model.CardIdentity

	// First number-like substring wins; later ones (denominators of
	// other fractions, grading numbers) are ignored. The numerator is
	// kept verbatim, zero padding included, because the catalog treats
	// "095" and "95" as distinct numbers in some sets.
	if m := cardNumberRe.FindStringSubmatch(title); m != nil {
		id.Number = m[1]
	}

	lower := strings.ToLower(title)
	for _, set := range knownSets {
		if strings.Contains(lower, strings.ToLower(set.Name)) {
			id.SetID = set.ID
			id.SetName = set.Name
			break
		}
	}

	return id
}

// FullNumber returns the complete matched number substring ("4/64")
// rather than just the numerator, or "" when the title has none.
func FullNumber(title string) string {
	return cardNumberRe.FindString(title)
}
