package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flavornet/models"
	"flavornet/schema"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const userIDCounter = "user_id"

// UserStore keeps credentials in users and the public profile with
// preferences in users_public, joined on the numeric user_id.
type UserStore struct {
	users    *mongo.Collection
	public   *mongo.Collection
	counters *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		users:    db.Collection(schema.Users),
		public:   db.Collection(schema.UsersPublic),
		counters: db.Collection(schema.Counters),
	}
}

// NextUserID allocates the next numeric user id.
func (s *UserStore) NextUserID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: userIDCounter}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next user id: %w", err)
	}
	return counter.Seq, nil
}

// Create inserts the credentials and the public profile. If the profile
// insert fails the credentials are removed again.
func (s *UserStore) Create(ctx context.Context, u *models.User, pub *models.UserPublic) error {
	id, err := s.NextUserID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	u.ID = bson.NewObjectID()
	u.UserID = id
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return translate(err)
	}

	pub.ID = bson.NewObjectID()
	pub.UserID = id
	if pub.Username == "" {
		pub.Username = fmt.Sprintf("user%d", id)
	}
	pub.Prefs = CleanPrefs(pub.Prefs)
	pub.Prefs.UpdatedAt = now
	pub.CreatedAt = now
	if _, err := s.public.InsertOne(ctx, pub); err != nil {
		if _, derr := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: u.ID}}); derr != nil {
			return fmt.Errorf("insert profile: %w (rollback failed: %v)", translate(err), derr)
		}
		return translate(err)
	}
	pub.Email = u.Email
	return nil
}

// List returns every public profile ordered by user id.
func (s *UserStore) List(ctx context.Context) ([]models.UserPublic, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := s.public.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := []models.UserPublic{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	filter := bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}}
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func byUserID(id int64) bson.D {
	return bson.D{{Key: "user_id", Value: id}}
}

func (s *UserStore) GetPrefs(ctx context.Context, userID int64) (*models.Prefs, error) {
	var pub models.UserPublic
	opts := options.FindOne().SetProjection(bson.D{{Key: "prefs", Value: 1}, {Key: "user_id", Value: 1}})
	if err := s.public.FindOne(ctx, byUserID(userID), opts).Decode(&pub); err != nil {
		return nil, translate(err)
	}
	return &pub.Prefs, nil
}

func (s *UserStore) setPrefs(ctx context.Context, userID int64, p models.Prefs) (*models.Prefs, error) {
	p = CleanPrefs(p)
	p.UpdatedAt = time.Now().UTC()
	var pub models.UserPublic
	err := s.public.FindOneAndUpdate(ctx,
		byUserID(userID),
		bson.D{{Key: "$set", Value: bson.D{{Key: "prefs", Value: p}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pub)
	if err != nil {
		return nil, translate(err)
	}
	return &pub.Prefs, nil
}

// ReplacePrefs overwrites all three lists; nil lists become empty.
func (s *UserStore) ReplacePrefs(ctx context.Context, userID int64, p models.Prefs) (*models.Prefs, error) {
	return s.setPrefs(ctx, userID, p)
}

// PatchPrefs adds and removes values on top of the stored lists.
func (s *UserStore) PatchPrefs(ctx context.Context, userID int64, add, remove map[string][]string) (*models.Prefs, error) {
	current, err := s.GetPrefs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.setPrefs(ctx, userID, ApplyPatch(*current, add, remove))
}

func (s *UserStore) ClearPrefs(ctx context.Context, userID int64) (*models.Prefs, error) {
	return s.setPrefs(ctx, userID, models.Prefs{})
}
