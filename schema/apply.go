package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"flavornet/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	validationLevel  = "moderate"
	validationAction = "error"

	codeNamespaceNotFound = 26
	codeIndexNotFound     = 27
)

// Recreate drops the collection if it exists and creates it again with its
// validator.
func Recreate(ctx context.Context, db *mongo.Database, spec CollectionSpec) error {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: spec.Name}})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(names, spec.Name) {
		if err := db.Collection(spec.Name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", spec.Name, err)
		}
	}
	opts := options.CreateCollection().
		SetValidator(spec.Validator).
		SetValidationLevel(validationLevel).
		SetValidationAction(validationAction)
	if err := db.CreateCollection(ctx, spec.Name, opts); err != nil {
		return fmt.Errorf("create %s: %w", spec.Name, err)
	}
	return nil
}

// Migrate replaces the validator of an existing collection in place,
// creating the collection when it does not exist yet.
func Migrate(ctx context.Context, db *mongo.Database, spec CollectionSpec) error {
	cmd := bson.D{
		{Key: "collMod", Value: spec.Name},
		{Key: "validator", Value: spec.Validator},
		{Key: "validationLevel", Value: validationLevel},
		{Key: "validationAction", Value: validationAction},
	}
	err := db.RunCommand(ctx, cmd).Err()
	if hasCode(err, codeNamespaceNotFound) {
		return Recreate(ctx, db, spec)
	}
	if err != nil {
		return fmt.Errorf("collMod %s: %w", spec.Name, err)
	}
	return nil
}

// ApplyCollections recreates (or, with migrate, collMods) every validated
// collection at the given version.
func ApplyCollections(ctx context.Context, db *mongo.Database, v Version, migrate bool) error {
	specs, err := Collections(v)
	if err != nil {
		return err
	}
	log := logging.With("schema")
	for _, spec := range specs {
		apply := Recreate
		if migrate {
			apply = Migrate
		}
		if err := apply(ctx, db, spec); err != nil {
			return err
		}
		log.Info().Str("collection", spec.Name).Str("version", string(v)).Bool("migrate", migrate).Msg("validator applied")
	}
	return nil
}

// EnsureIndexes creates every index, dropping the legacy slug index first.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	err := db.Collection(Recipes).Indexes().DropOne(ctx, LegacySlugIndex)
	if err != nil && !hasCode(err, codeIndexNotFound) && !hasCode(err, codeNamespaceNotFound) {
		return fmt.Errorf("drop %s: %w", LegacySlugIndex, err)
	}

	all := Indexes()
	for _, coll := range IndexOrder {
		names, err := db.Collection(coll).Indexes().CreateMany(ctx, all[coll])
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		lg := logging.With("schema")
		lg.Info().Str("collection", coll).Strs("indexes", names).Msg("indexes ensured")
	}
	return nil
}

func hasCode(err error, code int) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.HasErrorCode(code)
}
