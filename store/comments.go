package store

import (
	"context"
	"fmt"
	"time"

	"flavornet/models"
	"flavornet/schema"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type CommentStore struct {
	coll *mongo.Collection
}

func NewCommentStore(db *mongo.Database) *CommentStore {
	return &CommentStore{coll: db.Collection(schema.Comments)}
}

func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	c.ID = bson.NewObjectID()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListByRecipe pages through a recipe's comments, newest first.
func (s *CommentStore) ListByRecipe(ctx context.Context, recipeID bson.ObjectID, p Page) (Result[models.Comment], error) {
	p = p.Normalize()
	filter := bson.D{{Key: "recipe_id", Value: recipeID}}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return Result[models.Comment]{}, fmt.Errorf("count comments: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return Result[models.Comment]{}, fmt.Errorf("find comments: %w", err)
	}
	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return Result[models.Comment]{}, fmt.Errorf("decode comments: %w", err)
	}
	return newResult(comments, total, p), nil
}
