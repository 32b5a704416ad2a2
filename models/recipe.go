package models

import (
	"strings"
	"time"

	"flavornet/taxonomy"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Ingredient is one structured ingredient line. Qty may be a number, a
// string such as "1/2", or absent.
type Ingredient struct {
	Name string `json:"name" bson:"name" validate:"required"`
	Qty  any    `json:"qty,omitempty" bson:"qty,omitempty"`
	Unit string `json:"unit,omitempty" bson:"unit,omitempty"`
	Raw  string `json:"raw" bson:"raw" validate:"required"`
}

type Times struct {
	PrepMin  *int `json:"prep_min,omitempty" bson:"prep_min,omitempty" validate:"omitempty,gte=0"`
	CookMin  *int `json:"cook_min,omitempty" bson:"cook_min,omitempty" validate:"omitempty,gte=0"`
	TotalMin *int `json:"total_min,omitempty" bson:"total_min,omitempty" validate:"omitempty,gte=0"`
}

type Rating struct {
	Value *float64 `json:"value" bson:"value" validate:"omitempty,gte=0,lte=5"`
	Count *int     `json:"count" bson:"count" validate:"omitempty,gte=0"`
}

// Image is a recipe photo. S3Key is set for images uploaded through the API.
type Image struct {
	URL         string `json:"url" bson:"url" validate:"required,url"`
	Attribution string `json:"attribution,omitempty" bson:"attribution,omitempty"`
	S3Key       string `json:"s3_key,omitempty" bson:"s3_key,omitempty"`
	SignedURL   string `json:"signed_url,omitempty" bson:"-"`
}

// Recipe is a document in the recipes collection.
type Recipe struct {
	ID          bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title" validate:"required,max=300"`
	Slug        string        `json:"slug" bson:"slug,omitempty" validate:"omitempty,kebab"`
	Summary     string        `json:"summary,omitempty" bson:"summary,omitempty"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	Ingredients []Ingredient  `json:"ingredients" bson:"ingredients" validate:"required,min=1,dive"`
	Steps       []string      `json:"steps" bson:"steps" validate:"required,min=1,dive,required"`

	Tags           []string `json:"tags" bson:"tags"`
	DietaryTags    []string `json:"dietary_tags" bson:"dietary_tags" validate:"dive,dietary"`
	AllergenTags   []string `json:"allergen_tags" bson:"allergen_tags" validate:"dive,allergen"`
	FlavourTags    []string `json:"flavour_tags" bson:"flavour_tags" validate:"dive,flavour"`
	TechniqueTags  []string `json:"technique_tags" bson:"technique_tags" validate:"dive,technique"`
	IngredientTags []string `json:"ingredient_tags" bson:"ingredient_tags" validate:"dive,kebab"`

	Cuisine   string `json:"cuisine,omitempty" bson:"cuisine,omitempty"`
	Course    string `json:"course,omitempty" bson:"course,omitempty" validate:"omitempty,course"`
	Author    string `json:"author,omitempty" bson:"author,omitempty"`
	SourceURL string `json:"source_url,omitempty" bson:"source_url,omitempty" validate:"omitempty,url"`

	Servings  *int    `json:"servings,omitempty" bson:"servings,omitempty" validate:"omitempty,gt=0"`
	Times     *Times  `json:"times,omitempty" bson:"times,omitempty"`
	Nutrition bson.M  `json:"nutrition,omitempty" bson:"nutrition,omitempty"`
	Rating    Rating  `json:"rating" bson:"rating"`
	Images    []Image `json:"images,omitempty" bson:"images,omitempty" validate:"dive"`

	TagProvenance *taxonomy.Provenance `json:"tag_provenance,omitempty" bson:"tag_provenance,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// TagInput adapts the recipe for the auto-tagger. Raw lines are preferred
// over names so quantities and notes reach the rules.
func (r *Recipe) TagInput() taxonomy.Input {
	ings := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if ing.Name != "" {
			ings = append(ings, ing.Name)
		} else if ing.Raw != "" {
			ings = append(ings, ing.Raw)
		}
	}
	return taxonomy.Input{
		Ingredients: ings,
		Steps:       r.Steps,
		Manual: taxonomy.Tags{
			Dietary:    r.DietaryTags,
			Allergen:   r.AllergenTags,
			Flavour:    r.FlavourTags,
			Technique:  r.TechniqueTags,
			Ingredient: r.IngredientTags,
		},
	}
}

// ApplyTags stores tagger output and provenance on the recipe.
func (r *Recipe) ApplyTags(tags taxonomy.Tags, prov taxonomy.Provenance) {
	r.DietaryTags = tags.Dietary
	r.AllergenTags = tags.Allergen
	r.FlavourTags = tags.Flavour
	r.TechniqueTags = tags.Technique
	r.IngredientTags = tags.Ingredient
	r.TagProvenance = &prov
}

// Normalize trims the title, derives a missing slug from it, lower-cases
// the course and fills nil arrays.
func (r *Recipe) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Slug == "" {
		r.Slug = taxonomy.Slugify(r.Title)
	}
	r.Course = strings.ToLower(strings.TrimSpace(r.Course))
	r.FillArrays()
}

// FillArrays replaces nil slices with empty ones. The recipes validator
// declares these fields as arrays and a nil slice encodes as BSON null.
func (r *Recipe) FillArrays() {
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	for _, p := range []*[]string{
		&r.Steps, &r.Tags, &r.DietaryTags, &r.AllergenTags,
		&r.FlavourTags, &r.TechniqueTags, &r.IngredientTags,
	} {
		if *p == nil {
			*p = []string{}
		}
	}
	if r.TagProvenance != nil && r.TagProvenance.Fields == nil {
		r.TagProvenance.Fields = []string{}
	}
}

// RecipeCard is the list view returned by /recipes/recommended and
// /recipes/search.
type RecipeCard struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Summary        *string  `json:"summary"`
	Description    *string  `json:"description"`
	Cuisine        *string  `json:"cuisine"`
	Course         *string  `json:"course"`
	DietaryTags    []string `json:"dietary_tags"`
	AllergenTags   []string `json:"allergen_tags"`
	IngredientTags []string `json:"ingredient_tags"`
	Ingredients    []string `json:"ingredients"`
	Rating         *float64 `json:"rating"`
	RatingCount    *int     `json:"rating_count"`
	Score          *float64 `json:"score"`
	Source         string   `json:"source"`
}
