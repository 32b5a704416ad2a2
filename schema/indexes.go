package schema

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// LegacySlugIndex was unique on slug alone; the same slug may now appear once
// per source_url.
const LegacySlugIndex = "slug_unique"

func single(field, name string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetName(name),
	}
}

// Indexes returns the index set for every collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		Recipes: {
			{
				Keys: bson.D{
					{Key: "title", Value: "text"},
					{Key: "tags", Value: "text"},
					{Key: "ingredients.raw", Value: "text"},
				},
				Options: options.Index().SetName("recipes_text"),
			},
			{
				Keys:    bson.D{{Key: "cuisine", Value: 1}, {Key: "rating.value", Value: -1}},
				Options: options.Index().SetName("cuisine_rating"),
			},
			single("course", "course"),
			single("ingredients.name", "ingredient_name"),
			single("ingredient_tags", "ingredient_tags"),
			single("dietary_tags", "dietary_tags"),
			single("allergen_tags", "allergen_tags"),
			single("flavour_tags", "flavour_tags"),
			single("technique_tags", "technique_tags"),
			{
				Keys:    bson.D{{Key: "slug", Value: 1}, {Key: "source_url", Value: 1}},
				Options: options.Index().SetName("slug_source_unique").SetUnique(true).SetSparse(true),
			},
		},
		Comments: {
			{
				Keys:    bson.D{{Key: "recipe_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("comments_by_recipe"),
			},
		},
		UsersPublic: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("username_unique").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id_unique").SetUnique(true),
			},
		},
		Users: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id_unique").SetUnique(true),
			},
		},
	}
}

// IndexOrder is the order EnsureIndexes walks the collections in.
var IndexOrder = []string{Recipes, Comments, UsersPublic, Users}
