package store

import (
	"strings"

	"flavornet/models"
)

// CleanList trims values, drops empties and removes case-insensitive
// duplicates, keeping the first spelling and the input order.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CleanPrefs applies CleanList to all three lists.
func CleanPrefs(p models.Prefs) models.Prefs {
	p.DietType = CleanList(p.DietType)
	p.Allergies = CleanList(p.Allergies)
	p.Dislikes = CleanList(p.Dislikes)
	return p
}

func patchList(current, add, remove []string) []string {
	merged := CleanList(append(append([]string{}, current...), add...))
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	out := merged[:0]
	for _, v := range merged {
		if _, ok := drop[strings.ToLower(v)]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// ApplyPatch adds then removes values per list. Keys other than diet_type,
// allergies and dislikes are ignored.
func ApplyPatch(p models.Prefs, add, remove map[string][]string) models.Prefs {
	p.DietType = patchList(p.DietType, add["diet_type"], remove["diet_type"])
	p.Allergies = patchList(p.Allergies, add["allergies"], remove["allergies"])
	p.Dislikes = patchList(p.Dislikes, add["dislikes"], remove["dislikes"])
	return p
}
