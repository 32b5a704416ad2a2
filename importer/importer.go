// Package importer loads recipes from JSON Lines files and backfills tags
// on recipes already in the database.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"flavornet/logging"
	"flavornet/metrics"
	"flavornet/models"
	"flavornet/taxonomy"
	"flavornet/validation"

	"github.com/goccy/go-json"
)

// maxLine bounds a single JSONL record. Scraped recipes with long step
// lists exceed bufio's 64KB default.
const maxLine = 4 << 20

const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeSkipped  = "skipped"
)

// Upserter is the part of the recipe store the importer writes through.
type Upserter interface {
	Upsert(ctx context.Context, r *models.Recipe) (bool, error)
}

// Stats counts import outcomes.
type Stats struct {
	Inserted int
	Updated  int
	Skipped  int
}

func (s Stats) Total() int { return s.Inserted + s.Updated + s.Skipped }

type Importer struct {
	store  Upserter
	tagger *taxonomy.Tagger
	// Retag re-runs the tagger even when a record already has provenance.
	Retag bool
}

func New(store Upserter, tagger *taxonomy.Tagger) *Importer {
	return &Importer{store: store, tagger: tagger}
}

// Prepare fills the slug, normalizes the course and tags the recipe.
func (im *Importer) Prepare(r *models.Recipe) error {
	r.Normalize()
	if r.Slug == "" {
		return errors.New("title does not produce a slug")
	}
	if r.TagProvenance == nil || im.Retag {
		r.ApplyTags(im.tagger.Tag(r.TagInput()))
	}
	return nil
}

// Import reads one recipe per line. Malformed or invalid records are
// logged and skipped; only read and store errors abort the run.
func (im *Importer) Import(ctx context.Context, src io.Reader) (Stats, error) {
	log := logging.With("importer")
	var stats Stats

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var r models.Recipe
		if err := json.Unmarshal(raw, &r); err != nil {
			im.skip(&stats, line, fmt.Errorf("decode: %w", err))
			continue
		}
		if err := im.Prepare(&r); err != nil {
			im.skip(&stats, line, err)
			continue
		}
		if err := validation.ValidateStruct(&r); err != nil {
			im.skip(&stats, line, err)
			continue
		}

		inserted, err := im.store.Upsert(ctx, &r)
		if err != nil {
			return stats, fmt.Errorf("line %d (%s): %w", line, r.Slug, err)
		}
		if inserted {
			stats.Inserted++
			metrics.ImportedRecipes.WithLabelValues(OutcomeInserted).Inc()
		} else {
			stats.Updated++
			metrics.ImportedRecipes.WithLabelValues(OutcomeUpdated).Inc()
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read line %d: %w", line+1, err)
	}

	log.Info().
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Msg("import finished")
	return stats, nil
}

func (im *Importer) skip(stats *Stats, line int, err error) {
	stats.Skipped++
	metrics.ImportedRecipes.WithLabelValues(OutcomeSkipped).Inc()
	lg := logging.With("importer")
	lg.Warn().Int("line", line).Err(err).Msg("skipping record")
}
