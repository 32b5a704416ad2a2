package importer

import (
	"context"
	"fmt"

	"flavornet/logging"
	"flavornet/models"
	"flavornet/taxonomy"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TagStore is what Retag needs from the recipe store.
type TagStore interface {
	ForEach(ctx context.Context, untaggedOnly bool, fn func(*models.Recipe) error) error
	SetTags(ctx context.Context, id bson.ObjectID, tags taxonomy.Tags, prov taxonomy.Provenance) error
}

// Retag runs the tagger over stored recipes. Without force only recipes
// lacking provenance are touched. Existing tags are kept as manual input.
func Retag(ctx context.Context, s TagStore, tagger *taxonomy.Tagger, force bool) (int, error) {
	n := 0
	err := s.ForEach(ctx, !force, func(r *models.Recipe) error {
		tags, prov := tagger.Tag(r.TagInput())
		if err := s.SetTags(ctx, r.ID, tags, prov); err != nil {
			return fmt.Errorf("retag %s: %w", r.Slug, err)
		}
		n++
		return nil
	})
	lg := logging.With("importer")
	lg.Info().Int("recipes", n).Bool("force", force).Msg("retag finished")
	return n, err
}
