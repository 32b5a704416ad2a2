package route

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"slices"
	"strings"
	"testing"
	"time"

	"flavornet/cache"
	"flavornet/controller"
	"flavornet/middlewares"
	"flavornet/models"
	"flavornet/recommend"
	"flavornet/taxonomy"
	"flavornet/utils"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	router    *gin.Engine
	h         *controller.Controller
	users     *fakeUsers
	recipes   *fakeRecipes
	comments  *fakeComments
	recommend *fakeRecommender
	images    *fakeImages
	cache     *memCache
	tokens    *utils.Tokens
}

func sampleRecipe() models.Recipe {
	rating := 4.5
	return models.Recipe{
		Slug:        "chana-masala",
		Title:       "Chana Masala",
		Ingredients: []models.Ingredient{{Name: "chickpea", Raw: "2 cans chickpeas"}},
		Steps:       []string{"Simmer everything."},
		Rating:      models.Rating{Value: &rating},
		Images:      []models.Image{{URL: "https://bucket/recipes/chana-masala/a.jpg", S3Key: "recipes/chana-masala/a.jpg"}},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		users:     newFakeUsers(),
		recipes:   newFakeRecipes(sampleRecipe()),
		comments:  &fakeComments{},
		recommend: &fakeRecommender{cards: []models.RecipeCard{{ID: "1", Slug: "chana-masala", Source: recommend.SourceMongo}}},
		images:    &fakeImages{uploaded: map[string]string{}},
		cache:     &memCache{data: map[string]any{}},
		tokens:    utils.NewTokens("test-secret", time.Hour),
	}
	e.h = &controller.Controller{
		Users:     e.users,
		Recipes:   e.recipes,
		Comments:  e.comments,
		Recommend: e.recommend,
		Images:    e.images,
		Cache:     e.cache,
		Tokens:    e.tokens,
		Tagger:    taxonomy.NewTagger(),
		Ping:      func(context.Context) error { return nil },
		Timeout:   time.Second,
	}
	e.router = New(e.h, Options{CORSOrigins: []string{"http://localhost:5173"}})
	return e
}

func (e *env) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := e.tokens.SignedToken(1, "cook@example.com", role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestRootAndHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "FlavorNet backend is running!") {
		t.Errorf("root = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(middlewares.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	if w := e.do(http.MethodGet, "/healthz", nil, ""); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
	e.h.Ping = func(context.Context) error { return errors.New("no primary") }
	if w := e.do(http.MethodGet, "/healthz", nil, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz down = %d", w.Code)
	}
}

func TestRegisterUser(t *testing.T) {
	e := newEnv(t)
	body := map[string]any{
		"email":     "Maria@Example.com",
		"password":  "secret1",
		"diet_type": []string{"vegan", " Vegan ", ""},
		"allergies": []string{"peanut"},
	}
	w := e.do(http.MethodPost, "/users", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var pub models.UserPublic
	decode(t, w, &pub)
	if pub.UserID != 1 || pub.Username != "user1" || pub.Email != "maria@example.com" {
		t.Errorf("user = %+v", pub)
	}
	if !slices.Equal(pub.Prefs.DietType, []string{"vegan"}) {
		t.Errorf("diet = %v", pub.Prefs.DietType)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("password leaked")
	}

	if w := e.do(http.MethodPost, "/users", body, ""); w.Code != http.StatusConflict {
		t.Errorf("duplicate = %d", w.Code)
	}

	w = e.do(http.MethodPost, "/users", map[string]any{"email": "nope", "password": "123"}, "")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "details") {
		t.Errorf("invalid = %d %s", w.Code, w.Body.String())
	}

	w = e.do(http.MethodGet, "/users", nil, "")
	var users []models.UserPublic
	decode(t, w, &users)
	if len(users) != 1 {
		t.Errorf("users = %+v", users)
	}
}

func TestPrefsEndpoints(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/users", map[string]any{"email": "a@b.co", "password": "secret1", "dislikes": []string{"olive"}}, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		check  func(t *testing.T, got map[string]any)
	}{
		{name: "bad id", method: http.MethodGet, path: "/users/abc/prefs", want: http.StatusBadRequest},
		{name: "missing user", method: http.MethodGet, path: "/users/9/prefs", want: http.StatusNotFound},
		{
			name: "get", method: http.MethodGet, path: "/users/1/prefs", want: http.StatusOK,
			check: func(t *testing.T, got map[string]any) {
				if got["user_id"].(float64) != 1 || len(got["dislikes"].([]any)) != 1 {
					t.Errorf("prefs = %v", got)
				}
			},
		},
		{
			name: "patch", method: http.MethodPatch, path: "/users/1/prefs", want: http.StatusOK,
			body: map[string]any{
				"add":    map[string][]string{"allergies": {"soy"}},
				"remove": map[string][]string{"dislikes": {"OLIVE"}},
			},
			check: func(t *testing.T, got map[string]any) {
				if len(got["allergies"].([]any)) != 1 || len(got["dislikes"].([]any)) != 0 {
					t.Errorf("prefs = %v", got)
				}
			},
		},
		{
			name: "patch with unknown key", method: http.MethodPatch, path: "/users/1/prefs", want: http.StatusBadRequest,
			body: map[string]any{"add": map[string][]string{"likes": {"x"}}},
		},
		{
			name: "replace", method: http.MethodPut, path: "/users/1/prefs", want: http.StatusOK,
			body: map[string]any{"diet_type": []string{"keto"}},
			check: func(t *testing.T, got map[string]any) {
				if len(got["diet_type"].([]any)) != 1 || len(got["allergies"].([]any)) != 0 {
					t.Errorf("prefs = %v", got)
				}
			},
		},
		{
			name: "clear", method: http.MethodDelete, path: "/users/1/prefs", want: http.StatusOK,
			check: func(t *testing.T, got map[string]any) {
				if len(got["diet_type"].([]any)) != 0 {
					t.Errorf("prefs = %v", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(tt.method, tt.path, tt.body, "")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.check != nil {
				var got map[string]any
				decode(t, w, &got)
				tt.check(t, got)
			}
		})
	}
}

func TestLoginLogout(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/users", map[string]any{"email": "cook@example.com", "password": "secret1"}, "")

	w := e.do(http.MethodPost, "/auth/login", map[string]any{"email": "COOK@example.com", "password": "secret1"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		User   struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	if resp.Token == "" || resp.User.ID != 1 || resp.User.Email != "cook@example.com" {
		t.Errorf("login response = %+v", resp)
	}
	claims, err := e.tokens.Parse(resp.Token)
	if err != nil || claims.Role != utils.RoleUser {
		t.Errorf("claims = %+v, err = %v", claims, err)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), middlewares.TokenCookie+"=") {
		t.Error("token cookie not set")
	}

	for _, body := range []map[string]any{
		{"email": "cook@example.com", "password": "wrong"},
		{"email": "ghost@example.com", "password": "secret1"},
	} {
		if w := e.do(http.MethodPost, "/auth/login", body, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("login %v = %d", body, w.Code)
		}
	}

	w = e.do(http.MethodPost, "/auth/logout", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("logout = %d, cookie %q", w.Code, w.Header().Get("Set-Cookie"))
	}
}

func TestRecommendedAndSearch(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"missing user_id", "/recipes/recommended", nil, http.StatusBadRequest},
		{"limit too large", "/recipes/recommended?user_id=1&limit=51", nil, http.StatusBadRequest},
		{"limit zero", "/recipes/recommended?user_id=1&limit=0", nil, http.StatusBadRequest},
		{"recommended", "/recipes/recommended?user_id=1", nil, http.StatusOK},
		{"no prefs", "/recipes/recommended?user_id=1", recommend.ErrPrefsNotFound, http.StatusNotFound},
		{"short query", "/recipes/search?user_id=1&query=a", nil, http.StatusBadRequest},
		{"search", "/recipes/search?user_id=1&query=curry&limit=5", nil, http.StatusOK},
		{"blank query", "/recipes/search?user_id=1&query=%20%20", recommend.ErrEmptyQuery, http.StatusBadRequest},
		{"store failure", "/recipes/search?user_id=1&query=curry", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.recommend.err = tt.err
			w := e.do(http.MethodGet, tt.path, nil, "")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK {
				var got struct {
					Data []models.RecipeCard `json:"data"`
				}
				decode(t, w, &got)
				if len(got.Data) != 1 || got.Data[0].Slug != "chana-masala" {
					t.Errorf("data = %+v", got.Data)
				}
			}
		})
	}
}

func TestListRecipes(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/recipes?diet=vegan,gluten-free&exclude_allergens=peanut&cuisine=Indian&page=2&limit=3", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	f := e.recipes.filter
	if !slices.Equal(f.Diet, []string{"vegan", "gluten-free"}) || !slices.Equal(f.ExcludeAllergens, []string{"peanut"}) || f.Cuisine != "Indian" {
		t.Errorf("filter = %+v", f)
	}
	var got struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	decode(t, w, &got)
	if got.Page != 2 || got.Limit != 3 {
		t.Errorf("page = %+v", got)
	}
}

func TestGetRecipeCachesAndPresigns(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 2; i++ {
		w := e.do(http.MethodGet, "/recipes/chana-masala", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var r models.Recipe
		decode(t, w, &r)
		if len(r.Images) != 1 || !strings.HasPrefix(r.Images[0].SignedURL, "https://signed.test/") {
			t.Errorf("images = %+v", r.Images)
		}
	}
	if e.recipes.lookups != 1 {
		t.Errorf("store lookups = %d, want 1", e.recipes.lookups)
	}
	if _, ok := e.cache.data[cache.RecipeKey("chana-masala")]; !ok {
		t.Error("recipe not cached")
	}
	if w := e.do(http.MethodGet, "/recipes/nope", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing = %d", w.Code)
	}
}

func TestCreateRecipe(t *testing.T) {
	e := newEnv(t)
	body := map[string]any{
		"title":        "Crème Brûlée",
		"ingredients":  []map[string]any{{"name": "cream", "raw": "500 ml double cream"}, {"name": "egg", "raw": "5 egg yolks"}, {"name": "sugar", "raw": "100 g sugar"}},
		"steps":        []string{"Bake in a water bath.", "Chill."},
		"dietary_tags": []string{"vegetarian"},
	}
	if w := e.do(http.MethodPost, "/recipes", body, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/recipes", body, e.token(t, utils.RoleUser)); w.Code != http.StatusForbidden {
		t.Errorf("user = %d", w.Code)
	}

	w := e.do(http.MethodPost, "/recipes", body, e.token(t, utils.RoleAdmin))
	if w.Code != http.StatusCreated {
		t.Fatalf("admin = %d %s", w.Code, w.Body.String())
	}
	var r models.Recipe
	decode(t, w, &r)
	if r.Slug != "creme-brulee" {
		t.Errorf("slug = %q", r.Slug)
	}
	if !slices.Contains(r.AllergenTags, "dairy") || !slices.Contains(r.AllergenTags, "egg") {
		t.Errorf("allergens = %v", r.AllergenTags)
	}
	if !slices.Contains(r.DietaryTags, "vegetarian") || !slices.Contains(r.TechniqueTags, "bake") {
		t.Errorf("tags = %v / %v", r.DietaryTags, r.TechniqueTags)
	}
	if r.TagProvenance == nil || r.TagProvenance.Method != "rules" {
		t.Errorf("provenance = %+v", r.TagProvenance)
	}

	if w := e.do(http.MethodPost, "/recipes", body, e.token(t, utils.RoleAdmin)); w.Code != http.StatusConflict {
		t.Errorf("duplicate = %d", w.Code)
	}

	bad := map[string]any{"title": "X", "ingredients": []map[string]any{{"name": "x", "raw": "x"}}, "steps": []string{"x"}, "dietary_tags": []string{"carnivore"}}
	w = e.do(http.MethodPost, "/recipes", bad, e.token(t, utils.RoleAdmin))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "not a known dietary tag") {
		t.Errorf("bad tags = %d %s", w.Code, w.Body.String())
	}
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	body := map[string]any{"text": "  Lovely!  "}
	if w := e.do(http.MethodPost, "/recipes/chana-masala/comments", body, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d", w.Code)
	}
	w := e.do(http.MethodPost, "/recipes/chana-masala/comments", body, e.token(t, utils.RoleUser))
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var c models.Comment
	decode(t, w, &c)
	if c.Author != "cook@example.com" || c.Text != "Lovely!" {
		t.Errorf("comment = %+v", c)
	}
	if w := e.do(http.MethodPost, "/recipes/nope/comments", body, e.token(t, utils.RoleUser)); w.Code != http.StatusNotFound {
		t.Errorf("missing recipe = %d", w.Code)
	}

	w = e.do(http.MethodGet, "/recipes/chana-masala/comments", nil, "")
	var page struct {
		Items []models.Comment `json:"items"`
		Total int64            `json:"total"`
	}
	decode(t, w, &page)
	if page.Total != 1 || page.Items[0].Text != "Lovely!" {
		t.Errorf("comments = %+v", page)
	}
}

func TestTaxonomy(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/taxonomy", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got struct {
		Vocabularies map[string][]string `json:"vocabularies"`
		Facets       map[string][]struct {
			Tag   string `json:"tag"`
			Count int64  `json:"count"`
		} `json:"facets"`
	}
	decode(t, w, &got)
	if !slices.Contains(got.Vocabularies["dietary"], "vegan") || len(got.Vocabularies["course"]) == 0 {
		t.Errorf("vocabularies = %v", got.Vocabularies)
	}
	if got.Facets["dietary"][0].Tag != "vegan" {
		t.Errorf("facets = %v", got.Facets)
	}
	if _, ok := e.cache.data[cache.FacetsKey()]; !ok {
		t.Error("facets not cached")
	}
}

func multipartImage(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="Plated Dish.JPG"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("fake-jpeg"))
	_ = mw.WriteField("attribution", "Photo by Sam")
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	e := newEnv(t)
	upload := func(slug, contentType string) *httptest.ResponseRecorder {
		body, ct := multipartImage(t, contentType)
		req := httptest.NewRequest(http.MethodPost, "/recipes/"+slug+"/images", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+e.token(t, utils.RoleAdmin))
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	w := upload("chana-masala", "image/jpeg")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var img models.Image
	decode(t, w, &img)
	if !strings.HasPrefix(img.S3Key, "recipes/chana-masala/") || !strings.HasSuffix(img.S3Key, "-plated-dish.jpg") {
		t.Errorf("key = %q", img.S3Key)
	}
	if img.Attribution != "Photo by Sam" || img.SignedURL == "" {
		t.Errorf("image = %+v", img)
	}
	if e.images.uploaded[img.S3Key] != "fake-jpeg" {
		t.Errorf("uploaded = %v", e.images.uploaded)
	}
	if len(e.recipes.bySlug["chana-masala"].Images) != 2 {
		t.Error("image not appended")
	}

	if w := upload("chana-masala", "text/plain"); w.Code != http.StatusBadRequest {
		t.Errorf("non-image = %d", w.Code)
	}
	if w := upload("nope", "image/png"); w.Code != http.StatusNotFound {
		t.Errorf("missing recipe = %d", w.Code)
	}

	e.h.Images = nil
	if w := upload("chana-masala", "image/png"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no storage = %d", w.Code)
	}
}
