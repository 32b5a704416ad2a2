package route

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"flavornet/models"
	"flavornet/store"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
	public map[int64]*models.UserPublic
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}, public: map[int64]*models.UserPublic{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User, pub *models.UserPublic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := f.users[email]; ok {
		return store.ErrDuplicate
	}
	f.nextID++
	u.UserID, u.Email = f.nextID, email
	pub.UserID, pub.Email = f.nextID, email
	if pub.Username == "" {
		pub.Username = fmt.Sprintf("user%d", f.nextID)
	}
	pub.Prefs = store.CleanPrefs(pub.Prefs)
	f.users[email] = u
	f.public[u.UserID] = pub
	return nil
}

func (f *fakeUsers) List(context.Context) ([]models.UserPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.UserPublic{}
	for id := int64(1); id <= f.nextID; id++ {
		if p, ok := f.public[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetPrefs(_ context.Context, id int64) (*models.Prefs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.public[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	prefs := p.Prefs
	return &prefs, nil
}

func (f *fakeUsers) set(id int64, p models.Prefs) (*models.Prefs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pub, ok := f.public[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	pub.Prefs = store.CleanPrefs(p)
	prefs := pub.Prefs
	return &prefs, nil
}

func (f *fakeUsers) ReplacePrefs(_ context.Context, id int64, p models.Prefs) (*models.Prefs, error) {
	return f.set(id, p)
}

func (f *fakeUsers) PatchPrefs(ctx context.Context, id int64, add, remove map[string][]string) (*models.Prefs, error) {
	current, err := f.GetPrefs(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.set(id, store.ApplyPatch(*current, add, remove))
}

func (f *fakeUsers) ClearPrefs(_ context.Context, id int64) (*models.Prefs, error) {
	return f.set(id, models.Prefs{})
}

type fakeRecipes struct {
	mu      sync.Mutex
	bySlug  map[string]*models.Recipe
	lookups int
	filter  store.RecipeFilter
}

func newFakeRecipes(recipes ...models.Recipe) *fakeRecipes {
	f := &fakeRecipes{bySlug: map[string]*models.Recipe{}}
	for i := range recipes {
		r := recipes[i]
		if r.ID.IsZero() {
			r.ID = bson.NewObjectID()
		}
		f.bySlug[r.Slug] = &r
	}
	return f
}

func (f *fakeRecipes) Search(_ context.Context, filter store.RecipeFilter, p store.Page) (store.Result[models.Recipe], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	items := []models.Recipe{}
	for _, r := range f.bySlug {
		items = append(items, *r)
	}
	return store.Result[models.Recipe]{Items: items, Total: int64(len(items)), Page: p.Page, Limit: p.Limit, TotalPages: 1}, nil
}

func (f *fakeRecipes) GetBySlug(_ context.Context, slug string) (*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	r, ok := f.bySlug[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	cp.Images = append([]models.Image(nil), r.Images...)
	return &cp, nil
}

func (f *fakeRecipes) Insert(_ context.Context, r *models.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bySlug[r.Slug]; ok {
		return store.ErrDuplicate
	}
	r.ID = bson.NewObjectID()
	cp := *r
	f.bySlug[r.Slug] = &cp
	return nil
}

func (f *fakeRecipes) AddImage(_ context.Context, slug string, img models.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.bySlug[slug]
	if !ok {
		return store.ErrNotFound
	}
	r.Images = append(r.Images, img)
	return nil
}

func (f *fakeRecipes) Facets(context.Context) (map[string][]store.FacetCount, error) {
	return map[string][]store.FacetCount{"dietary": {{Tag: "vegan", Count: 2}}}, nil
}

type fakeComments struct {
	mu       sync.Mutex
	comments []models.Comment
}

func (f *fakeComments) Create(_ context.Context, c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = bson.NewObjectID()
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeComments) ListByRecipe(_ context.Context, id bson.ObjectID, p store.Page) (store.Result[models.Comment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []models.Comment{}
	for i := len(f.comments) - 1; i >= 0; i-- {
		if f.comments[i].RecipeID == id {
			items = append(items, f.comments[i])
		}
	}
	return store.Result[models.Comment]{Items: items, Total: int64(len(items)), Page: p.Page, Limit: p.Limit, TotalPages: 1}, nil
}

type fakeRecommender struct {
	cards []models.RecipeCard
	err   error
}

func (f *fakeRecommender) Recommended(context.Context, int64, int) ([]models.RecipeCard, error) {
	return f.cards, f.err
}

func (f *fakeRecommender) Search(context.Context, int64, string, int) ([]models.RecipeCard, error) {
	return f.cards, f.err
}

type fakeImages struct {
	uploaded map[string]string
}

func (f *fakeImages) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploaded[key] = string(data)
	return "https://bucket.s3.test/" + key, nil
}

func (f *fakeImages) Presign(_ context.Context, key string) (string, error) {
	return "https://signed.test/" + key + "?sig=1", nil
}

// memCache is an in-process cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string]any
}

func (m *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *models.Recipe:
		r := v.(models.Recipe)
		r.Images = append([]models.Image(nil), r.Images...)
		*d = r
	case *map[string][]store.FacetCount:
		*d = v.(map[string][]store.FacetCount)
	default:
		return false, nil
	}
	return true, nil
}

func (m *memCache) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := value.(models.Recipe); ok {
		r.Images = append([]models.Image(nil), r.Images...)
		value = r
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
