package taxonomy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// KebabPattern is the slug / ingredient tag constraint enforced by the v3
// collection validator.
const KebabPattern = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

var (
	kebabRe     = regexp.MustCompile(KebabPattern)
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9]+`)
	parenRe     = regexp.MustCompile(`\([^)]*\)`)
	quantityRe  = regexp.MustCompile(`^[\d\s/.,½¼¾⅓⅔-]+`)
	stripAccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// IsKebab reports whether s is a non-empty kebab-case identifier.
func IsKebab(s string) bool {
	return kebabRe.MatchString(s)
}

// Slugify converts free text into a kebab-case slug. The result is empty when
// s has no ASCII letters or digits.
func Slugify(s string) string {
	folded, _, err := transform.String(stripAccent, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "&", " and ")
	folded = strings.ReplaceAll(folded, "'", "")
	return strings.Trim(nonAlnumRe.ReplaceAllString(folded, "-"), "-")
}

// measureWords are dropped from the front of ingredient names.
var measureWords = map[string]struct{}{
	"cup": {}, "cups": {}, "tbsp": {}, "tablespoon": {}, "tablespoons": {},
	"tsp": {}, "teaspoon": {}, "teaspoons": {}, "g": {}, "kg": {}, "gram": {},
	"grams": {}, "ml": {}, "l": {}, "litre": {}, "liter": {}, "oz": {}, "ounce": {},
	"ounces": {}, "lb": {}, "lbs": {}, "pound": {}, "pounds": {}, "pinch": {},
	"dash": {}, "clove": {}, "cloves": {}, "can": {}, "cans": {}, "handful": {},
	"of": {}, "large": {}, "small": {}, "medium": {}, "fresh": {}, "chopped": {},
	"diced": {}, "minced": {}, "sliced": {},
}

// pluralExceptions are words whose trailing s is not a plural marker.
var pluralExceptions = map[string]struct{}{
	"hummus": {}, "couscous": {}, "asparagus": {}, "molasses": {}, "swiss": {},
	"brussels": {}, "citrus": {}, "lentils": {}, "oats": {}, "peas": {}, "chickpeas": {},
	"greens": {}, "grits": {}, "noodles": {}, "capers": {},
}

// CanonicalIngredient reduces an ingredient name or raw line ("2 cloves of
// garlic, minced") to a canonical kebab-case tag ("garlic").
func CanonicalIngredient(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = parenRe.ReplaceAllString(s, " ")
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	s = quantityRe.ReplaceAllString(s, "")

	words := strings.Fields(s)
	for len(words) > 1 {
		if _, ok := measureWords[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	if n := len(words); n > 0 {
		words[n-1] = singular(words[n-1])
	}
	return Slugify(strings.Join(words, " "))
}

var irregularPlurals = map[string]string{
	"leaves": "leaf", "loaves": "loaf", "halves": "half", "knives": "knife",
}

func singular(w string) string {
	if _, ok := pluralExceptions[w]; ok {
		return w
	}
	if s, ok := irregularPlurals[w]; ok {
		return s
	}
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "oes") && len(w) > 4:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"):
		return w
	case strings.HasSuffix(w, "s") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}
