// Package taxonomy holds the controlled tag vocabularies recipes are
// classified with, plus the slug rules and the rules-based auto-tagger.
package taxonomy

import "strings"

// Vocabulary is a fixed, ordered set of kebab-case tags.
type Vocabulary struct {
	Name  string
	terms []string
	index map[string]struct{}
}

func newVocabulary(name string, terms ...string) Vocabulary {
	idx := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		idx[t] = struct{}{}
	}
	return Vocabulary{Name: name, terms: terms, index: idx}
}

var (
	Dietary = newVocabulary("dietary",
		"vegan", "vegetarian", "pescatarian", "gluten-free", "dairy-free", "nut-free",
		"egg-free", "low-carb", "keto", "paleo", "halal", "kosher")

	Allergen = newVocabulary("allergen",
		"gluten", "dairy", "egg", "peanut", "tree-nut", "soy", "fish", "shellfish",
		"sesame", "mustard", "celery", "sulphites", "lupin", "molluscs")

	Flavour = newVocabulary("flavour",
		"spicy", "smoky", "sweet", "sour", "salty", "savoury", "umami", "bitter",
		"tangy", "herby", "citrusy", "rich")

	Technique = newVocabulary("technique",
		"bake", "roast", "grill", "fry", "deep-fry", "saute", "stir-fry", "steam",
		"boil", "simmer", "braise", "poach", "slow-cook", "pressure-cook", "no-cook",
		"blend", "ferment", "marinate")

	Course = newVocabulary("course",
		"breakfast", "brunch", "appetizer", "starter", "main", "side", "salad", "soup",
		"dessert", "snack", "drink", "sauce", "bread")

	ProvenanceMethods = newVocabulary("provenance",
		"rules", "model", "llm", "manual")
)

// Vocabularies lists every taxonomy in display order.
func Vocabularies() []Vocabulary {
	return []Vocabulary{Dietary, Allergen, Flavour, Technique, Course}
}

// Lookup returns the vocabulary with the given name.
func Lookup(name string) (Vocabulary, bool) {
	for _, v := range append(Vocabularies(), ProvenanceMethods) {
		if v.Name == name {
			return v, true
		}
	}
	return Vocabulary{}, false
}

// Terms returns a copy of the vocabulary's terms.
func (v Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Contains reports whether tag, once normalised, is in the vocabulary.
func (v Vocabulary) Contains(tag string) bool {
	_, ok := v.index[Normalize(tag)]
	return ok
}

// Filter keeps vocabulary members, normalised and deduplicated, in input order.
func (v Vocabulary) Filter(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if _, ok := v.index[n]; !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Normalize trims and lower-cases a tag and folds spaces/underscores to
// hyphens so "Gluten Free" matches "gluten-free".
func Normalize(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.NewReplacer("_", "-", " ", "-").Replace(t)
	for strings.Contains(t, "--") {
		t = strings.ReplaceAll(t, "--", "-")
	}
	return t
}

// Merge appends the members of add that are not already in base.
func Merge(base []string, add ...string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, t := range append(append([]string{}, base...), add...) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
