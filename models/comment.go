package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Comment struct {
	ID        bson.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipeID  bson.ObjectID `json:"recipe_id" bson:"recipe_id"`
	Author    string        `json:"author" bson:"author"`
	Text      string        `json:"text" bson:"text"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}
