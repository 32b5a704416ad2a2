package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"flavornet/cache"
	"flavornet/logging"
	"flavornet/models"
	"flavornet/recommend"
	"flavornet/storage"
	"flavornet/store"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 10 << 20

func csvQuery(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ListRecipes is the multi-filter search with page/limit pagination.
func (h *Controller) ListRecipes(c *gin.Context) {
	f := store.RecipeFilter{
		Text:               c.Query("q"),
		Ingredients:        csvQuery(c, "ingredients"),
		IngredientName:     c.Query("ingredient"),
		Diet:               csvQuery(c, "diet"),
		Flavours:           csvQuery(c, "flavour"),
		Techniques:         csvQuery(c, "technique"),
		ExcludeAllergens:   csvQuery(c, "exclude_allergens"),
		ExcludeIngredients: csvQuery(c, "exclude_ingredients"),
		Cuisine:            c.Query("cuisine"),
		Course:             c.Query("course"),
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	result, err := h.Recipes.Search(ctx, f, pageQuery(c))
	if err != nil {
		fail(c, err, "Failed to fetch recipes")
		return
	}
	c.JSON(http.StatusOK, result)
}

// recommendParams reads user_id (required) and limit (1..50, default 12).
func recommendParams(c *gin.Context) (int64, int, bool) {
	raw, ok := c.GetQuery("user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return 0, 0, false
	}
	id, ok := userIDParam(c, raw)
	if !ok {
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(recommend.DefaultLimit)))
	if err != nil || limit < 1 || limit > recommend.MaxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 50"})
		return 0, 0, false
	}
	return id, limit, true
}

func recommendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, recommend.ErrPrefsNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User preferences not found."})
	case errors.Is(err, recommend.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query text cannot be empty."})
	default:
		fail(c, err, "Failed to fetch recommendations")
	}
}

func (h *Controller) Recommended(c *gin.Context) {
	userID, limit, ok := recommendParams(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	items, err := h.Recommend.Recommended(ctx, userID, limit)
	if err != nil {
		recommendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *Controller) SearchRecipes(c *gin.Context) {
	userID, limit, ok := recommendParams(c)
	if !ok {
		return
	}
	query := c.Query("query")
	if len([]rune(query)) < recommend.MinQueryLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be at least 2 characters"})
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	items, err := h.Recommend.Search(ctx, userID, query, limit)
	if err != nil {
		recommendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetRecipe serves one recipe through the cache. Image URLs are presigned
// per request since signatures expire.
func (h *Controller) GetRecipe(c *gin.Context) {
	slug := c.Param("slug")
	ctx, cancel := h.ctx(c)
	defer cancel()
	log := logging.FromContext(ctx)

	var recipe models.Recipe
	found, err := h.Cache.Get(ctx, cache.RecipeKey(slug), &recipe)
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("cache read failed")
	}
	if !found {
		r, err := h.Recipes.GetBySlug(ctx, slug)
		if err != nil {
			fail(c, err, "Recipe")
			return
		}
		recipe = *r
		if err := h.Cache.Set(ctx, cache.RecipeKey(slug), recipe); err != nil {
			log.Warn().Err(err).Str("slug", slug).Msg("cache write failed")
		}
	}

	if h.Images != nil {
		for i, img := range recipe.Images {
			if img.S3Key == "" {
				continue
			}
			signed, err := h.Images.Presign(ctx, img.S3Key)
			if err != nil {
				log.Warn().Err(err).Str("key", img.S3Key).Msg("presign failed")
				continue
			}
			recipe.Images[i].SignedURL = signed
		}
	}
	c.JSON(http.StatusOK, recipe)
}

// CreateRecipe slugifies the title when no slug is given and auto-tags the
// recipe before inserting it.
func (h *Controller) CreateRecipe(c *gin.Context) {
	var recipe models.Recipe
	if !bind(c, &recipe) {
		return
	}
	recipe.Normalize()
	if recipe.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title does not produce a usable slug"})
		return
	}
	recipe.ApplyTags(h.Tagger.Tag(recipe.TagInput()))

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Recipes.Insert(ctx, &recipe); err != nil {
		fail(c, err, "Recipe")
		return
	}
	if err := h.Cache.Delete(ctx, cache.FacetsKey()); err != nil {
		lg := logging.FromContext(ctx)
		lg.Warn().Err(err).Msg("cache invalidation failed")
	}
	c.JSON(http.StatusCreated, recipe)
}

// UploadImage stores the multipart "image" file in S3 and appends it to the
// recipe.
func (h *Controller) UploadImage(c *gin.Context) {
	if h.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage is not configured"})
		return
	}
	slug := c.Param("slug")

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	if file.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is larger than 10 MB"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be an image"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if _, err := h.Recipes.GetBySlug(ctx, slug); err != nil {
		fail(c, err, "Recipe")
		return
	}

	body, err := file.Open()
	if err != nil {
		fail(c, err, "Something went wrong")
		return
	}
	defer body.Close()

	key := storage.ObjectKey(slug, file.Filename)
	url, err := h.Images.Upload(ctx, key, body, contentType)
	if err != nil {
		fail(c, err, "Error uploading image")
		return
	}

	img := models.Image{URL: url, Attribution: c.PostForm("attribution"), S3Key: key}
	if err := h.Recipes.AddImage(ctx, slug, img); err != nil {
		fail(c, err, "Recipe")
		return
	}
	if err := h.Cache.Delete(ctx, cache.RecipeKey(slug)); err != nil {
		lg := logging.FromContext(ctx)
		lg.Warn().Err(err).Msg("cache invalidation failed")
	}
	if signed, err := h.Images.Presign(ctx, key); err == nil {
		img.SignedURL = signed
	}
	c.JSON(http.StatusCreated, img)
}
