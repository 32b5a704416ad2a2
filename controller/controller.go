package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"flavornet/cache"
	"flavornet/logging"
	"flavornet/models"
	"flavornet/store"
	"flavornet/taxonomy"
	"flavornet/utils"
	"flavornet/validation"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserRepo interface {
	Create(ctx context.Context, u *models.User, pub *models.UserPublic) error
	List(ctx context.Context) ([]models.UserPublic, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetPrefs(ctx context.Context, userID int64) (*models.Prefs, error)
	ReplacePrefs(ctx context.Context, userID int64, p models.Prefs) (*models.Prefs, error)
	PatchPrefs(ctx context.Context, userID int64, add, remove map[string][]string) (*models.Prefs, error)
	ClearPrefs(ctx context.Context, userID int64) (*models.Prefs, error)
}

type RecipeRepo interface {
	Search(ctx context.Context, f store.RecipeFilter, p store.Page) (store.Result[models.Recipe], error)
	GetBySlug(ctx context.Context, slug string) (*models.Recipe, error)
	Insert(ctx context.Context, r *models.Recipe) error
	AddImage(ctx context.Context, slug string, img models.Image) error
	Facets(ctx context.Context) (map[string][]store.FacetCount, error)
}

type CommentRepo interface {
	Create(ctx context.Context, c *models.Comment) error
	ListByRecipe(ctx context.Context, recipeID bson.ObjectID, p store.Page) (store.Result[models.Comment], error)
}

type Recommender interface {
	Recommended(ctx context.Context, userID int64, limit int) ([]models.RecipeCard, error)
	Search(ctx context.Context, userID int64, query string, limit int) ([]models.RecipeCard, error)
}

type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Presign(ctx context.Context, key string) (string, error)
}

// Controller holds the dependencies every handler needs. Images may be nil
// when S3 is not configured.
type Controller struct {
	Users     UserRepo
	Recipes   RecipeRepo
	Comments  CommentRepo
	Recommend Recommender
	Images    ImageStore
	Cache     cache.Cache
	Tokens    *utils.Tokens
	Tagger    *taxonomy.Tagger
	Ping      func(ctx context.Context) error

	Timeout      time.Duration
	SecureCookie bool
}

func (h *Controller) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// bind decodes the JSON body into dst and validates it, answering 400 on
// failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		lg := logging.FromContext(c.Request.Context())
		lg.Debug().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Request Body"})
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Failed", "details": verr.Fields})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Failed"})
		return false
	}
	return true
}

// fail maps store sentinels to 404/409 and logs anything else as a 500.
func fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msg + ": not found"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": msg + ": already exists"})
	default:
		lg := logging.FromContext(c.Request.Context())
		lg.Error().Err(err).Msg(msg)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func userIDParam(c *gin.Context, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func pageQuery(c *gin.Context) store.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultLimit)))
	return store.Page{Page: page, Limit: limit}.Normalize()
}
