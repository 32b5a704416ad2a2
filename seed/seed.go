// Package seed fills a development database with fake users and comments.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flavornet/logging"
	"flavornet/models"
	"flavornet/taxonomy"
	"flavornet/utils"

	"github.com/jaswdr/faker"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultPassword is given to every seeded account.
const DefaultPassword = "flavornet-dev"

var ErrNoRecipes = errors.New("no recipes to comment on")

var dislikes = []string{
	"olive", "cilantro", "mushroom", "anchovy", "eggplant", "beetroot",
	"blue-cheese", "liver", "okra", "celery", "coconut", "raisin",
}

var openers = []string{
	"Made this twice already.",
	"Family loved it.",
	"Easy weeknight dinner.",
	"Needed more salt for us.",
	"Would add extra garlic next time.",
	"Perfect with rice.",
}

type UserCreator interface {
	Create(ctx context.Context, u *models.User, pub *models.UserPublic) error
}

type CommentCreator interface {
	Create(ctx context.Context, c *models.Comment) error
}

type RecipeSource interface {
	ForEach(ctx context.Context, untaggedOnly bool, fn func(*models.Recipe) error) error
}

type Seeder struct {
	fake     faker.Faker
	users    UserCreator
	comments CommentCreator
	recipes  RecipeSource
	Password string
}

func New(fake faker.Faker, users UserCreator, comments CommentCreator, recipes RecipeSource) *Seeder {
	return &Seeder{fake: fake, users: users, comments: comments, recipes: recipes, Password: DefaultPassword}
}

// pick returns up to max distinct values from pool.
func (s *Seeder) pick(pool []string, max int) []string {
	n := s.fake.IntBetween(0, max)
	out := make([]string, 0, n)
	for len(out) < n {
		v := s.fake.RandomStringElement(pool)
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// User builds the i-th fake account.
func (s *Seeder) User(i int, hash string) (*models.User, *models.UserPublic) {
	first := strings.ToLower(s.fake.Person().FirstName())
	last := strings.ToLower(s.fake.Person().LastName())
	username := taxonomy.Slugify(fmt.Sprintf("%s %s %d", first, last, i))

	user := &models.User{
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: hash,
		Role:     utils.RoleUser,
	}
	pub := &models.UserPublic{
		Username: username,
		Prefs: models.Prefs{
			DietType:  s.pick(taxonomy.Dietary.Terms(), 2),
			Allergies: s.pick(taxonomy.Allergen.Terms(), 2),
			Dislikes:  s.pick(dislikes, 3),
		},
	}
	return user, pub
}

// Users creates n accounts sharing one password and returns their emails.
func (s *Seeder) Users(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	hash, err := utils.HashPass(s.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	emails := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		user, pub := s.User(i, hash)
		if err := s.users.Create(ctx, user, pub); err != nil {
			return emails, fmt.Errorf("create %s: %w", user.Email, err)
		}
		emails = append(emails, user.Email)
	}
	lg := logging.With("seed")
	lg.Info().Int("users", len(emails)).Msg("users seeded")
	return emails, nil
}

func (s *Seeder) recipeIDs(ctx context.Context) ([]bson.ObjectID, error) {
	var ids []bson.ObjectID
	err := s.recipes.ForEach(ctx, false, func(r *models.Recipe) error {
		ids = append(ids, r.ID)
		return nil
	})
	return ids, err
}

// Comments posts n comments on random recipes by random authors. Without
// authors, comments are signed as "guest".
func (s *Seeder) Comments(ctx context.Context, n int, authors []string) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	ids, err := s.recipeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recipes: %w", err)
	}
	if len(ids) == 0 {
		return 0, ErrNoRecipes
	}
	if len(authors) == 0 {
		authors = []string{"guest"}
	}

	for i := 0; i < n; i++ {
		c := &models.Comment{
			RecipeID: ids[s.fake.IntBetween(0, len(ids)-1)],
			Author:   s.fake.RandomStringElement(authors),
			Text:     s.fake.RandomStringElement(openers) + " " + s.fake.Lorem().Sentence(8),
		}
		if err := s.comments.Create(ctx, c); err != nil {
			return i, fmt.Errorf("create comment: %w", err)
		}
	}
	lg := logging.With("seed")
	lg.Info().Int("comments", n).Msg("comments seeded")
	return n, nil
}
