// Package search embeds free-text queries and runs them against the Qdrant
// recipe collection over its REST API.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"flavornet/config"
	"flavornet/logging"
	"flavornet/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

// VectorName is the named vector recipes are indexed under.
const VectorName = "v_text"

// MinHits is the smallest number of hits requested from Qdrant.
const MinHits = 5

var ErrUnavailable = errors.New("vector search unavailable")

// errCallerGone marks failures caused by the caller's context. The breaker
// does not count them.
var errCallerGone = errors.New("search abandoned by caller")

// Payload is the recipe summary stored alongside each vector.
type Payload struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Cuisine        *string  `json:"cuisine"`
	Summary        *string  `json:"summary"`
	DietaryTags    []string `json:"dietary_tags"`
	AllergenTags   []string `json:"allergen_tags"`
	IngredientTags []string `json:"ingredient_tags"`
	RatingValue    *float64 `json:"rating_value"`
}

type Hit struct {
	ID      any      `json:"id"`
	Score   float64  `json:"score"`
	Payload *Payload `json:"payload"`
}

type Match struct {
	Value string   `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type Condition struct {
	Key   string `json:"key"`
	Match Match  `json:"match"`
}

type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// BuildFilter requires every diet tag and excludes any allergen or disliked
// ingredient. It returns nil when there is nothing to filter on.
func BuildFilter(diet, allergies, dislikes []string) *Filter {
	f := &Filter{}
	for _, d := range diet {
		f.Must = append(f.Must, Condition{Key: "dietary_tags", Match: Match{Value: d}})
	}
	if len(allergies) > 0 {
		f.MustNot = append(f.MustNot, Condition{Key: "allergen_tags", Match: Match{Any: allergies}})
	}
	if len(dislikes) > 0 {
		f.MustNot = append(f.MustNot, Condition{Key: "ingredient_tags", Match: Match{Any: dislikes}})
	}
	if len(f.Must) == 0 && len(f.MustNot) == 0 {
		return nil
	}
	return f
}

type namedVector struct {
	Name   string    `json:"name"`
	Vector []float32 `json:"vector"`
}

type searchRequest struct {
	Vector      namedVector `json:"vector"`
	Limit       int         `json:"limit"`
	Filter      *Filter     `json:"filter,omitempty"`
	WithPayload bool        `json:"with_payload"`
}

type searchResponse struct {
	Result []Hit   `json:"result"`
	Status any     `json:"status"`
	Time   float64 `json:"time"`
}

// Client embeds the query text and searches Qdrant. Both calls run inside
// one circuit breaker so a failing dependency is skipped quickly.
type Client struct {
	http       *http.Client
	qdrantURL  string
	apiKey     string
	collection string
	embedder   *Embedder
	cb         *gobreaker.CircuitBreaker[[]Hit]
}

func NewClient(cfg config.VectorConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	const name = "vector-search"
	metrics.RecordBreakerState(name, gobreaker.StateClosed.String())

	cb := gobreaker.NewCircuitBreaker[[]Hit](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg := logging.With("search")
			lg.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.RecordBreakerState(name, to.String())
		},
	})

	return &Client{
		http:       httpClient,
		qdrantURL:  cfg.QdrantURL,
		apiKey:     cfg.QdrantAPIKey,
		collection: cfg.Collection,
		embedder:   NewEmbedder(httpClient, cfg.EmbeddingURL),
		cb:         cb,
	}
}

// Search returns up to max(limit, MinHits) hits ordered by score. Errors
// from an open breaker or a failing dependency wrap ErrUnavailable.
func (c *Client) Search(ctx context.Context, text string, filter *Filter, limit int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	hits, err := c.cb.Execute(func() ([]Hit, error) {
		hits, err := c.search(ctx, text, filter, limit)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
		}
		return hits, err
	})
	metrics.VectorSearchDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, errCallerGone) {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return hits, nil
}

func (c *Client) search(ctx context.Context, text string, filter *Filter, limit int) ([]Hit, error) {
	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, vector, filter, max(limit, MinHits))
}

func (c *Client) query(ctx context.Context, vector []float32, filter *Filter, limit int) ([]Hit, error) {
	body, err := json.Marshal(searchRequest{
		Vector:      namedVector{Name: VectorName, Vector: vector},
		Limit:       limit,
		Filter:      filter,
		WithPayload: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	endpoint := fmt.Sprintf("%s/collections/%s/points/search", c.qdrantURL, url.PathEscape(c.collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("qdrant search: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode qdrant response: %w", err)
	}
	return out.Result, nil
}
