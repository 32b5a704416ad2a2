package store

import (
	"context"
	"fmt"
	"time"

	"flavornet/models"
	"flavornet/schema"
	"flavornet/taxonomy"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	scriptLimit       = 10
	DefaultIngredient = "garlic"
)

type RecipeStore struct {
	coll *mongo.Collection
}

func NewRecipeStore(db *mongo.Database) *RecipeStore {
	return &RecipeStore{coll: db.Collection(schema.Recipes)}
}

// Search runs the multi-filter query with page/limit pagination.
func (s *RecipeStore) Search(ctx context.Context, f RecipeFilter, p Page) (Result[models.Recipe], error) {
	p = p.Normalize()
	filter := f.Filter()

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return Result[models.Recipe]{}, fmt.Errorf("count recipes: %w", err)
	}

	opts := options.Find().
		SetSort(f.Sort()).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return Result[models.Recipe]{}, fmt.Errorf("find recipes: %w", err)
	}
	var recipes []models.Recipe
	if err := cursor.All(ctx, &recipes); err != nil {
		return Result[models.Recipe]{}, fmt.Errorf("decode recipes: %w", err)
	}
	return newResult(recipes, total, p), nil
}

// Find returns up to limit recipes projected to card fields.
func (s *RecipeStore) Find(ctx context.Context, f RecipeFilter, limit int) ([]models.Recipe, error) {
	opts := options.Find().
		SetProjection(CardProjection).
		SetSort(f.Sort()).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, f.Filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("find recipes: %w", err)
	}
	recipes := []models.Recipe{}
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	return recipes, nil
}

// FindByFilters matches diet, flavour and ingredient tags and returns the
// summary projection sorted by rating.
func (s *RecipeStore) FindByFilters(ctx context.Context, f RecipeFilter, limit int) ([]bson.M, error) {
	if limit < 1 {
		limit = scriptLimit
	}
	opts := options.Find().
		SetProjection(bson.D{
			{Key: "title", Value: 1},
			{Key: "cuisine", Value: 1},
			{Key: "course", Value: 1},
			{Key: "dietary_tags", Value: 1},
			{Key: "flavour_tags", Value: 1},
		}).
		SetSort(bson.D{{Key: "rating.value", Value: -1}}).
		SetLimit(int64(limit))
	return s.findRaw(ctx, f.Filter(), opts)
}

// FindByIngredient matches ingredients.name exactly (lower-cased).
func (s *RecipeStore) FindByIngredient(ctx context.Context, name string, limit int) ([]bson.M, error) {
	if name == "" {
		name = DefaultIngredient
	}
	if limit < 1 {
		limit = scriptLimit
	}
	f := RecipeFilter{IngredientName: name}
	opts := options.Find().
		SetProjection(bson.D{
			{Key: "title", Value: 1},
			{Key: "cuisine", Value: 1},
			{Key: "tags", Value: 1},
		}).
		SetLimit(int64(limit))
	return s.findRaw(ctx, f.Filter(), opts)
}

func (s *RecipeStore) findRaw(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]bson.M, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find recipes: %w", err)
	}
	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	return docs, nil
}

func (s *RecipeStore) GetBySlug(ctx context.Context, slug string) (*models.Recipe, error) {
	var r models.Recipe
	err := s.coll.FindOne(ctx, bson.D{{Key: "slug", Value: slug}}).Decode(&r)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// FindBySlugs loads card projections keyed by slug. Empty slugs are skipped.
func (s *RecipeStore) FindBySlugs(ctx context.Context, slugs []string) (map[string]models.Recipe, error) {
	wanted := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			wanted = append(wanted, slug)
		}
	}
	out := make(map[string]models.Recipe, len(wanted))
	if len(wanted) == 0 {
		return out, nil
	}

	filter := bson.D{{Key: "slug", Value: bson.D{{Key: "$in", Value: wanted}}}}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetProjection(CardProjection))
	if err != nil {
		return nil, fmt.Errorf("find recipes by slug: %w", err)
	}
	var recipes []models.Recipe
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	for _, r := range recipes {
		if r.Slug != "" {
			out[r.Slug] = r
		}
	}
	return out, nil
}

// Insert stores a new recipe. A slug already used for the same source_url
// is reported as ErrDuplicate.
func (s *RecipeStore) Insert(ctx context.Context, r *models.Recipe) error {
	now := time.Now().UTC()
	r.ID = bson.NewObjectID()
	r.CreatedAt, r.UpdatedAt = now, now
	doc, err := encodeRecipe(r)
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	return nil
}

// encodeRecipe is the document every recipe write sends to Mongo.
func encodeRecipe(r *models.Recipe) (bson.M, error) {
	r.FillArrays()
	raw, err := bson.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}
	return doc, nil
}

func sourceKey(r *models.Recipe) bson.D {
	var src any
	if r.SourceURL != "" {
		src = r.SourceURL
	}
	return bson.D{{Key: "slug", Value: r.Slug}, {Key: "source_url", Value: src}}
}

// Upsert replaces the recipe identified by (slug, source_url), keeping its
// _id and created_at. It reports whether a new document was inserted.
func (s *RecipeStore) Upsert(ctx context.Context, r *models.Recipe) (bool, error) {
	doc, err := encodeRecipe(r)
	if err != nil {
		return false, err
	}
	delete(doc, "_id")
	delete(doc, "created_at")
	now := time.Now().UTC()
	doc["updated_at"] = now

	update := bson.D{
		{Key: "$set", Value: doc},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}
	res, err := s.coll.UpdateOne(ctx, sourceKey(r), update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return false, translate(err)
	}
	if id, ok := res.UpsertedID.(bson.ObjectID); ok {
		r.ID = id
	}
	r.UpdatedAt = now
	return res.UpsertedCount > 0, nil
}

// AddImage appends an image to the recipe with the given slug.
func (s *RecipeStore) AddImage(ctx context.Context, slug string, img models.Image) error {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "images", Value: img}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
	}
	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "slug", Value: slug}}, update)
	if err != nil {
		return fmt.Errorf("add image: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTags overwrites the structured tag arrays and provenance.
func (s *RecipeStore) SetTags(ctx context.Context, id bson.ObjectID, tags taxonomy.Tags, prov taxonomy.Provenance) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "dietary_tags", Value: orEmpty(tags.Dietary)},
		{Key: "allergen_tags", Value: orEmpty(tags.Allergen)},
		{Key: "flavour_tags", Value: orEmpty(tags.Flavour)},
		{Key: "technique_tags", Value: orEmpty(tags.Technique)},
		{Key: "ingredient_tags", Value: orEmpty(tags.Ingredient)},
		{Key: "tag_provenance", Value: prov},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("set tags: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ForEach streams recipes to fn. With untaggedOnly, recipes that already
// carry tag_provenance are skipped.
func (s *RecipeStore) ForEach(ctx context.Context, untaggedOnly bool, fn func(*models.Recipe) error) error {
	filter := bson.D{}
	if untaggedOnly {
		filter = bson.D{{Key: "tag_provenance", Value: bson.D{{Key: "$exists", Value: false}}}}
	}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("find recipes: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var r models.Recipe
		if err := cursor.Decode(&r); err != nil {
			return fmt.Errorf("decode recipe: %w", err)
		}
		if err := fn(&r); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *RecipeStore) Count(ctx context.Context) (int64, error) {
	return s.coll.EstimatedDocumentCount(ctx)
}
