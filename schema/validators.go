// Package schema defines the MongoDB collection validators and indexes.
//
// The recipes validator has three versions. v1 is the original free-form
// shape, v2 constrains the structured tag arrays and course to the taxonomy
// vocabularies, and v3 adds the kebab-case slug rule and auto-tag provenance.
// Every version is applied at the moderate validation level, so documents
// that predate a version stay readable and are only checked when updated.
package schema

import (
	"fmt"

	"flavornet/taxonomy"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Version string

const (
	V1     Version = "v1"
	V2     Version = "v2"
	V3     Version = "v3"
	Latest         = V3
)

const (
	Recipes     = "recipes"
	Comments    = "comments"
	UsersPublic = "users_public"
	Users       = "users"
	Counters    = "counters"
)

// ParseVersion accepts "v1".."v3" or "" (Latest).
func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case "":
		return Latest, nil
	case V1, V2, V3:
		return Version(s), nil
	}
	return "", fmt.Errorf("unknown schema version %q", s)
}

func typed(types ...string) bson.M {
	if len(types) == 1 {
		return bson.M{"bsonType": types[0]}
	}
	return bson.M{"bsonType": types}
}

func stringArray() bson.M {
	return bson.M{"bsonType": "array", "items": typed("string")}
}

func vocabArray(v taxonomy.Vocabulary) bson.M {
	return bson.M{
		"bsonType":    "array",
		"uniqueItems": true,
		"items":       bson.M{"bsonType": "string", "enum": v.Terms()},
	}
}

func recipeProperties(v Version) bson.M {
	props := bson.M{
		"title": typed("string"),
		"slug":  typed("string"),
		"ingredients": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "object",
				"required": []string{"name", "raw"},
				"properties": bson.M{
					"name": typed("string"),
					"qty":  typed("double", "int", "string", "null"),
					"unit": typed("string", "null"),
					"raw":  typed("string"),
				},
			},
		},
		"steps": stringArray(),

		"tags":            stringArray(),
		"dietary_tags":    stringArray(),
		"flavour_tags":    stringArray(),
		"ingredient_tags": stringArray(),

		"cuisine":    typed("string", "null"),
		"course":     typed("string", "null"),
		"author":     typed("string", "null"),
		"source_url": typed("string", "null"),

		"servings": typed("int", "null"),
		"times": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"prep_min":  typed("int", "null"),
				"cook_min":  typed("int", "null"),
				"total_min": typed("int", "null"),
			},
		},
		"nutrition": bson.M{"bsonType": "object", "additionalProperties": true},
		"rating": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"value": typed("double", "int", "null"),
				"count": typed("int", "null"),
			},
		},
		"images": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"url":         typed("string"),
					"attribution": typed("string", "null"),
				},
			},
		},
		"created_at": typed("date"),
		"updated_at": typed("date"),
	}
	if v == V1 {
		return props
	}

	props["dietary_tags"] = vocabArray(taxonomy.Dietary)
	props["allergen_tags"] = vocabArray(taxonomy.Allergen)
	props["flavour_tags"] = vocabArray(taxonomy.Flavour)
	props["technique_tags"] = vocabArray(taxonomy.Technique)
	props["ingredient_tags"] = bson.M{"bsonType": "array", "uniqueItems": true, "items": typed("string")}
	courses := make([]any, 0, len(taxonomy.Course.Terms())+1)
	for _, c := range taxonomy.Course.Terms() {
		courses = append(courses, c)
	}
	props["course"] = bson.M{"bsonType": []string{"string", "null"}, "enum": append(courses, nil)}
	if v == V2 {
		return props
	}

	props["slug"] = bson.M{"bsonType": "string", "pattern": taxonomy.KebabPattern}
	props["ingredient_tags"] = bson.M{
		"bsonType":    "array",
		"uniqueItems": true,
		"items":       bson.M{"bsonType": "string", "pattern": taxonomy.KebabPattern},
	}
	props["tag_provenance"] = bson.M{
		"bsonType": "object",
		"required": []string{"method", "version", "tagged_at"},
		"properties": bson.M{
			"method":    bson.M{"bsonType": "string", "enum": taxonomy.ProvenanceMethods.Terms()},
			"version":   typed("string"),
			"tagged_at": typed("date"),
			"fields":    stringArray(),
		},
	}
	return props
}

// RecipeValidator returns the $jsonSchema validator for the given version.
func RecipeValidator(v Version) (bson.M, error) {
	required := []string{"title", "ingredients", "steps"}
	switch v {
	case V1, V2:
	case V3:
		required = append(required, "slug")
	default:
		return nil, fmt.Errorf("unknown schema version %q", v)
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": recipeProperties(v),
	}}, nil
}

// CommentValidator is shared by every schema version.
func CommentValidator() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"recipe_id", "author", "text", "created_at"},
		"properties": bson.M{
			"recipe_id":  typed("objectId"),
			"author":     typed("string"),
			"text":       typed("string"),
			"created_at": typed("date"),
		},
	}}
}

// UsersPublicValidator is shared by every schema version.
func UsersPublicValidator() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"user_id", "username", "created_at"},
		"properties": bson.M{
			"user_id":    typed("long", "int"),
			"username":   typed("string"),
			"avatar_url": typed("string", "null"),
			"prefs":      bson.M{"bsonType": "object", "additionalProperties": true},
			"created_at": typed("date"),
		},
	}}
}

// CollectionSpec is a collection name and its validator.
type CollectionSpec struct {
	Name      string
	Validator bson.M
}

// Collections lists every validated collection for a schema version.
func Collections(v Version) ([]CollectionSpec, error) {
	recipes, err := RecipeValidator(v)
	if err != nil {
		return nil, err
	}
	return []CollectionSpec{
		{Name: Recipes, Validator: recipes},
		{Name: Comments, Validator: CommentValidator()},
		{Name: UsersPublic, Validator: UsersPublicValidator()},
	}, nil
}
