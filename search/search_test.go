package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"flavornet/config"

	"github.com/goccy/go-json"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name                      string
		diet, allergies, dislikes []string
		want                      *Filter
	}{
		{name: "empty", want: nil},
		{
			name: "diet only",
			diet: []string{"vegan", "gluten-free"},
			want: &Filter{Must: []Condition{
				{Key: "dietary_tags", Match: Match{Value: "vegan"}},
				{Key: "dietary_tags", Match: Match{Value: "gluten-free"}},
			}},
		},
		{
			name:      "exclusions",
			allergies: []string{"peanut"},
			dislikes:  []string{"olive", "anchovy"},
			want: &Filter{MustNot: []Condition{
				{Key: "allergen_tags", Match: Match{Any: []string{"peanut"}}},
				{Key: "ingredient_tags", Match: Match{Any: []string{"olive", "anchovy"}}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilter(tt.diet, tt.allergies, tt.dislikes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// fakeServices serves both the embedding and Qdrant endpoints.
func fakeServices(t *testing.T, qdrantStatus int) (*httptest.Server, *searchRequest) {
	t.Helper()
	var captured searchRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) != 1 || !req.Normalize {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	})
	mux.HandleFunc("/collections/recipes/points/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if qdrantStatus != http.StatusOK {
			http.Error(w, "down", qdrantStatus)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"result":[{"id":1,"score":0.92,"payload":{"slug":"chana-masala","title":"Chana Masala","dietary_tags":["vegan"]}},{"id":2,"score":0.5,"payload":null}],"status":"ok","time":0.001}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.VectorConfig{
		QdrantURL:    srv.URL,
		QdrantAPIKey: "secret",
		Collection:   "recipes",
		EmbeddingURL: srv.URL + "/embed",
		Timeout:      time.Second,
	})
}

func TestClientSearch(t *testing.T) {
	srv, captured := fakeServices(t, http.StatusOK)
	c := newTestClient(srv)

	filter := BuildFilter([]string{"vegan"}, nil, nil)
	hits, err := c.Search(context.Background(), "chickpea curry", filter, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if hits[0].Payload == nil || hits[0].Payload.Slug != "chana-masala" || hits[0].Score != 0.92 {
		t.Errorf("hit[0] = %+v", hits[0])
	}
	if hits[1].Payload != nil {
		t.Errorf("hit[1] payload = %+v, want nil", hits[1].Payload)
	}

	if captured.Vector.Name != VectorName {
		t.Errorf("vector name = %q", captured.Vector.Name)
	}
	if captured.Limit != MinHits {
		t.Errorf("limit = %d, want %d", captured.Limit, MinHits)
	}
	if !captured.WithPayload || captured.Filter == nil || len(captured.Filter.Must) != 1 {
		t.Errorf("request = %+v", captured)
	}
}

func TestClientSearchUnavailable(t *testing.T) {
	srv, _ := fakeServices(t, http.StatusServiceUnavailable)
	c := newTestClient(srv)

	for i := 0; i < 4; i++ {
		_, err := c.Search(context.Background(), "soup", nil, 12)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("attempt %d: err = %v, want ErrUnavailable", i, err)
		}
	}
	// The breaker is open now; the error says so.
	_, err := c.Search(context.Background(), "soup", nil, 12)
	if err == nil || !strings.Contains(err.Error(), "open") {
		t.Errorf("err = %v, want open-state error", err)
	}
}

func TestClientSearchCancelledCallsKeepBreakerClosed(t *testing.T) {
	var healthy atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			<-r.Context().Done()
			return
		}
		_ = json.NewEncoder(w).Encode([][]float32{{0.1}})
	})
	mux.HandleFunc("/collections/recipes/points/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"id":1,"score":0.7,"payload":{"slug":"dal"}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := newTestClient(srv)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := c.Search(ctx, "dal", nil, 3)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("attempt %d: err = %v, want context.DeadlineExceeded", i, err)
		}
		if errors.Is(err, ErrUnavailable) {
			t.Fatalf("attempt %d: caller timeout reported as unavailable", i)
		}
	}

	healthy.Store(true)
	hits, err := c.Search(context.Background(), "dal", nil, 3)
	if err != nil || len(hits) != 1 {
		t.Fatalf("after abandoned calls: hits = %v, err = %v", hits, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Search(ctx, "dal", nil, 3); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: err = %v", err)
	}
}
