package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type FacetCount struct {
	Tag   string `json:"tag" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// FacetFields maps the facet name to the recipe array it counts.
var FacetFields = map[string]string{
	"dietary":   "dietary_tags",
	"allergen":  "allergen_tags",
	"flavour":   "flavour_tags",
	"technique": "technique_tags",
	"course":    "course",
}

// FacetPipeline counts tag usage for every facet in a single $facet stage.
func FacetPipeline() mongo.Pipeline {
	facets := bson.D{}
	for _, name := range facetNames() {
		field := "$" + FacetFields[name]
		facets = append(facets, bson.E{Key: name, Value: bson.A{
			bson.D{{Key: "$unwind", Value: field}},
			bson.D{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: field},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		}})
	}
	return mongo.Pipeline{{{Key: "$facet", Value: facets}}}
}

func facetNames() []string {
	return []string{"dietary", "allergen", "flavour", "technique", "course"}
}

// Facets returns tag counts per taxonomy array.
func (s *RecipeStore) Facets(ctx context.Context) (map[string][]FacetCount, error) {
	cursor, err := s.coll.Aggregate(ctx, FacetPipeline())
	if err != nil {
		return nil, fmt.Errorf("aggregate facets: %w", err)
	}
	var rows []map[string][]FacetCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode facets: %w", err)
	}

	out := make(map[string][]FacetCount, len(FacetFields))
	for _, name := range facetNames() {
		out[name] = []FacetCount{}
		if len(rows) > 0 && rows[0][name] != nil {
			out[name] = rows[0][name]
		}
	}
	return out, nil
}
