package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User holds login credentials. It lives in the private users collection;
// everything shown to other users is in UserPublic.
type User struct {
	ID        bson.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID    int64         `json:"user_id" bson:"user_id"`
	Email     string        `json:"email" bson:"email"`
	Password  string        `json:"-" bson:"password"`
	Role      string        `json:"role,omitempty" bson:"role,omitempty"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}

// Prefs are the dietary preferences that drive recommendations.
type Prefs struct {
	DietType  []string  `json:"diet_type" bson:"diet_type"`
	Allergies []string  `json:"allergies" bson:"allergies"`
	Dislikes  []string  `json:"dislikes" bson:"dislikes"`
	UpdatedAt time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// UserPublic is a document in users_public.
type UserPublic struct {
	ID        bson.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID    int64         `json:"user_id" bson:"user_id"`
	Username  string        `json:"username" bson:"username"`
	Email     string        `json:"email,omitempty" bson:"-"`
	AvatarURL string        `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	Prefs     Prefs         `json:"prefs" bson:"prefs"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

type RegisterRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6,max=72"`
	Username  string   `json:"username" validate:"omitempty,min=3,max=40"`
	DietType  []string `json:"diet_type" validate:"max=50,dive,max=60"`
	Allergies []string `json:"allergies" validate:"max=50,dive,max=60"`
	Dislikes  []string `json:"dislikes" validate:"max=50,dive,max=60"`
}

type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// PrefsReplaceRequest replaces all three lists; a missing list is cleared.
type PrefsReplaceRequest struct {
	DietType  []string `json:"diet_type" validate:"max=50,dive,max=60"`
	Allergies []string `json:"allergies" validate:"max=50,dive,max=60"`
	Dislikes  []string `json:"dislikes" validate:"max=50,dive,max=60"`
}

// PrefsPatchRequest adds and removes values per list, keyed by
// diet_type, allergies or dislikes.
type PrefsPatchRequest struct {
	Add    map[string][]string `json:"add" validate:"dive,keys,oneof=diet_type allergies dislikes,endkeys"`
	Remove map[string][]string `json:"remove" validate:"dive,keys,oneof=diet_type allergies dislikes,endkeys"`
}
