// Package recommend builds personalised recipe lists from a user's dietary
// preferences: a rating-ordered Mongo filter for recommendations, and
// vector similarity (or the text index) for free-text search.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flavornet/logging"
	"flavornet/metrics"
	"flavornet/models"
	"flavornet/search"
	"flavornet/store"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultLimit = 12
	MaxLimit     = 50
	MinQueryLen  = 2

	SourceMongo   = "mongo"
	SourcePayload = "vector-payload"
)

var (
	ErrPrefsNotFound = errors.New("user preferences not found")
	ErrEmptyQuery    = errors.New("query text cannot be empty")
)

type PrefsSource interface {
	GetPrefs(ctx context.Context, userID int64) (*models.Prefs, error)
}

type RecipeFinder interface {
	Find(ctx context.Context, f store.RecipeFilter, limit int) ([]models.Recipe, error)
	FindBySlugs(ctx context.Context, slugs []string) (map[string]models.Recipe, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, text string, filter *search.Filter, limit int) ([]search.Hit, error)
}

type Service struct {
	prefs   PrefsSource
	recipes RecipeFinder
	vectors VectorSearcher
}

// New returns a Service. vectors may be nil, in which case search uses the
// Mongo text index.
func New(prefs PrefsSource, recipes RecipeFinder, vectors VectorSearcher) *Service {
	return &Service{prefs: prefs, recipes: recipes, vectors: vectors}
}

// SanitizeList trims and lower-cases values and drops empty ones.
func SanitizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Preferences are sanitized prefs ready for querying.
type Preferences struct {
	Diet      []string
	Allergies []string
	Dislikes  []string
}

func sanitize(p models.Prefs) Preferences {
	return Preferences{
		Diet:      SanitizeList(p.DietType),
		Allergies: SanitizeList(p.Allergies),
		Dislikes:  SanitizeList(p.Dislikes),
	}
}

// Filter requires all diet tags and excludes allergens and disliked
// ingredients.
func (p Preferences) Filter() store.RecipeFilter {
	return store.RecipeFilter{
		Diet:               p.Diet,
		ExcludeAllergens:   p.Allergies,
		ExcludeIngredients: p.Dislikes,
	}
}

// BuildQuery is the Mongo query for a set of preferences. Empty lists are
// omitted.
func BuildQuery(p models.Prefs) bson.D {
	return sanitize(p).Filter().Filter()
}

func (s *Service) load(ctx context.Context, userID int64) (Preferences, error) {
	prefs, err := s.prefs.GetPrefs(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Preferences{}, ErrPrefsNotFound
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("load prefs: %w", err)
	}
	return sanitize(*prefs), nil
}

// ClampLimit maps a non-positive limit to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Recommended returns the top-rated recipes matching the user's prefs.
func (s *Service) Recommended(ctx context.Context, userID int64, limit int) ([]models.RecipeCard, error) {
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	recipes, err := s.recipes.Find(ctx, prefs.Filter(), ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return formatAll(recipes), nil
}

// Search ranks recipes by similarity to query within the user's prefs.
func (s *Service) Search(ctx context.Context, userID int64, query string, limit int) ([]models.RecipeCard, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)

	if s.vectors == nil {
		metrics.SearchFallbacks.WithLabelValues("disabled").Inc()
		return s.textSearch(ctx, prefs, query, limit)
	}

	filter := search.BuildFilter(prefs.Diet, prefs.Allergies, prefs.Dislikes)
	hits, err := s.vectors.Search(ctx, query, filter, limit)
	if errors.Is(err, search.ErrUnavailable) {
		lg := logging.With("recommend")
		lg.Warn().Err(err).Msg("vector search failed, using text index")
		metrics.SearchFallbacks.WithLabelValues("unavailable").Inc()
		return s.textSearch(ctx, prefs, query, limit)
	}
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, hits, limit)
}

func (s *Service) textSearch(ctx context.Context, prefs Preferences, query string, limit int) ([]models.RecipeCard, error) {
	f := prefs.Filter()
	f.Text = query
	recipes, err := s.recipes.Find(ctx, f, limit)
	if err != nil {
		return nil, err
	}
	return formatAll(recipes), nil
}

// hydrate replaces hits with their Mongo documents, keeping hit order and
// score. Hits whose recipe is missing are built from the vector payload.
func (s *Service) hydrate(ctx context.Context, hits []search.Hit, limit int) ([]models.RecipeCard, error) {
	cards := []models.RecipeCard{}
	if len(hits) == 0 {
		return cards, nil
	}
	slugs := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Payload != nil {
			slugs = append(slugs, h.Payload.Slug)
		}
	}
	docs, err := s.recipes.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}

	for _, h := range hits {
		score := h.Score
		var p search.Payload
		if h.Payload != nil {
			p = *h.Payload
		}
		if doc, ok := docs[p.Slug]; ok && p.Slug != "" {
			card := FormatRecipe(doc)
			card.Score = &score
			cards = append(cards, card)
			continue
		}
		cards = append(cards, payloadCard(p, score))
	}
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func payloadCard(p search.Payload, score float64) models.RecipeCard {
	id := p.Slug
	if id == "" {
		id = p.Title
	}
	return models.RecipeCard{
		ID:             id,
		Slug:           p.Slug,
		Title:          p.Title,
		Cuisine:        p.Cuisine,
		Summary:        p.Summary,
		Description:    p.Summary,
		DietaryTags:    nonNil(p.DietaryTags),
		AllergenTags:   nonNil(p.AllergenTags),
		IngredientTags: nonNil(p.IngredientTags),
		Ingredients:    nonNil(p.IngredientTags),
		Rating:         p.RatingValue,
		Score:          &score,
		Source:         SourcePayload,
	}
}

func formatAll(recipes []models.Recipe) []models.RecipeCard {
	cards := make([]models.RecipeCard, 0, len(recipes))
	for _, r := range recipes {
		cards = append(cards, FormatRecipe(r))
	}
	return cards
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FormatRecipe builds the card view. Ingredient lines prefer raw text, then
// the name, and fall back to ingredient_tags when neither is present.
func FormatRecipe(r models.Recipe) models.RecipeCard {
	ingredients := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		switch {
		case ing.Raw != "":
			ingredients = append(ingredients, ing.Raw)
		case ing.Name != "":
			ingredients = append(ingredients, ing.Name)
		}
	}
	if len(ingredients) == 0 {
		ingredients = nonNil(r.IngredientTags)
	}

	var id string
	if !r.ID.IsZero() {
		id = r.ID.Hex()
	}
	return models.RecipeCard{
		ID:             id,
		Slug:           r.Slug,
		Title:          r.Title,
		Summary:        optional(r.Summary),
		Description:    optional(r.Description),
		Cuisine:        optional(r.Cuisine),
		Course:         optional(r.Course),
		DietaryTags:    nonNil(r.DietaryTags),
		AllergenTags:   nonNil(r.AllergenTags),
		IngredientTags: nonNil(r.IngredientTags),
		Ingredients:    ingredients,
		Rating:         r.Rating.Value,
		RatingCount:    r.Rating.Count,
		Source:         SourceMongo,
	}
}
