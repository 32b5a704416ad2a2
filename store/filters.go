package store

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RecipeFilter is the multi-filter recipe query. Empty fields are ignored;
// list fields are lower-cased and trimmed before use.
type RecipeFilter struct {
	Text               string
	Ingredients        []string
	IngredientName     string
	Diet               []string
	Flavours           []string
	Techniques         []string
	ExcludeAllergens   []string
	ExcludeIngredients []string
	Cuisine            string
	Course             string
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func appendAll(d bson.D, field string, values []string) bson.D {
	if values = lowerAll(values); len(values) > 0 {
		d = append(d, bson.E{Key: field, Value: bson.D{{Key: "$all", Value: values}}})
	}
	return d
}

func appendNin(d bson.D, field string, values []string) bson.D {
	if values = lowerAll(values); len(values) > 0 {
		d = append(d, bson.E{Key: field, Value: bson.D{{Key: "$nin", Value: values}}})
	}
	return d
}

// Empty reports whether the filter matches every recipe.
func (f RecipeFilter) Empty() bool {
	return len(f.Filter()) == 0
}

func (f RecipeFilter) HasText() bool {
	return strings.TrimSpace(f.Text) != ""
}

// Filter builds the Mongo query document.
func (f RecipeFilter) Filter() bson.D {
	d := bson.D{}
	if f.HasText() {
		d = append(d, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: strings.TrimSpace(f.Text)}}})
	}
	d = appendAll(d, "ingredient_tags", f.Ingredients)
	if name := strings.ToLower(strings.TrimSpace(f.IngredientName)); name != "" {
		d = append(d, bson.E{Key: "ingredients.name", Value: name})
	}
	d = appendAll(d, "dietary_tags", f.Diet)
	d = appendAll(d, "flavour_tags", f.Flavours)
	d = appendAll(d, "technique_tags", f.Techniques)

	// ingredient_tags may already carry an $all; merge the $nin into it.
	d = appendNin(d, "allergen_tags", f.ExcludeAllergens)
	if ex := lowerAll(f.ExcludeIngredients); len(ex) > 0 {
		merged := false
		for i, e := range d {
			if e.Key == "ingredient_tags" {
				d[i].Value = append(e.Value.(bson.D), bson.E{Key: "$nin", Value: ex})
				merged = true
			}
		}
		if !merged {
			d = append(d, bson.E{Key: "ingredient_tags", Value: bson.D{{Key: "$nin", Value: ex}}})
		}
	}

	if c := strings.TrimSpace(f.Cuisine); c != "" {
		d = append(d, bson.E{Key: "cuisine", Value: bson.Regex{Pattern: "^" + regexp.QuoteMeta(c) + "$", Options: "i"}})
	}
	if c := strings.ToLower(strings.TrimSpace(f.Course)); c != "" {
		d = append(d, bson.E{Key: "course", Value: c})
	}
	return d
}

var textScore = bson.D{{Key: "$meta", Value: "textScore"}}

// Sort orders by rating then title; text queries rank by relevance first.
func (f RecipeFilter) Sort() bson.D {
	s := bson.D{}
	if f.HasText() {
		s = append(s, bson.E{Key: "score", Value: textScore})
	}
	return append(s, bson.E{Key: "rating.value", Value: -1}, bson.E{Key: "title", Value: 1})
}

// CardProjection is the field set needed to build a RecipeCard.
var CardProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "slug", Value: 1},
	{Key: "title", Value: 1},
	{Key: "summary", Value: 1},
	{Key: "description", Value: 1},
	{Key: "cuisine", Value: 1},
	{Key: "course", Value: 1},
	{Key: "dietary_tags", Value: 1},
	{Key: "allergen_tags", Value: 1},
	{Key: "ingredient_tags", Value: 1},
	{Key: "ingredients", Value: 1},
	{Key: "rating", Value: 1},
}
