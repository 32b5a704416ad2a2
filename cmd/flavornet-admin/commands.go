package main

import (
	"errors"
	"fmt"
	"os"

	"flavornet/importer"
	"flavornet/schema"
	"flavornet/seed"
	"flavornet/store"
	"flavornet/taxonomy"

	"github.com/jaswdr/faker"
	"github.com/spf13/cobra"
)

func (a *app) collectionsCmd() *cobra.Command {
	var (
		version string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Create validated collections (drops existing ones unless --migrate)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if version == "" {
				version = a.cfg.Schema.Version
			}
			v, err := schema.ParseVersion(version)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			if err := schema.ApplyCollections(ctx, db, v, migrate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collections ready (schema %s).\n", v)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "validator version: v1, v2 or v3 (default from SCHEMA_VERSION)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "update validators in place with collMod instead of recreating")
	return cmd
}

func (a *app) indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create all indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			if err := schema.EnsureIndexes(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Indexes created (arrays + cuisine).")
			return nil
		},
	}
}

func (a *app) findByFiltersCmd() *cobra.Command {
	var (
		diet, flavours, ingredients []string
		limit                       int
	)
	cmd := &cobra.Command{
		Use:   "find-by-filters",
		Short: "List recipes matching all given diet, flavour and ingredient tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := store.RecipeFilter{Diet: diet, Flavours: flavours, Ingredients: ingredients}
			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			docs, err := store.NewRecipeStore(db).FindByFilters(ctx, f, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().StringSliceVar(&diet, "diet", envList("DIET"), "dietary tags (env DIET)")
	cmd.Flags().StringSliceVar(&flavours, "flavour", envList("FLAV"), "flavour tags (env FLAV)")
	cmd.Flags().StringSliceVar(&ingredients, "ingredient", envList("ING"), "ingredient tags (env ING)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func (a *app) findByIngredientCmd() *cobra.Command {
	var (
		name  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "find-by-ingredient",
		Short: "List recipes using an ingredient by name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			docs, err := store.NewRecipeStore(db).FindByIngredient(ctx, name, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().StringVar(&name, "ingredient", store.DefaultIngredient, "ingredient name")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var (
		path  string
		retag bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import recipes from a JSON Lines file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			im := importer.New(store.NewRecipeStore(db), taxonomy.NewTagger())
			im.Retag = retag
			stats, err := im.Import(ctx, file)
			fmt.Fprintf(cmd.OutOrStdout(), "inserted=%d updated=%d skipped=%d\n", stats.Inserted, stats.Updated, stats.Skipped)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "path to a .jsonl file")
	cmd.Flags().BoolVar(&retag, "retag", false, "re-run the tagger on records that already carry provenance")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) retagCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "retag",
		Short: "Backfill structured tags on stored recipes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			n, err := importer.Retag(ctx, store.NewRecipeStore(db), taxonomy.NewTagger(), force)
			fmt.Fprintf(cmd.OutOrStdout(), "retagged=%d\n", n)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "retag every recipe, not only untagged ones")
	return cmd
}

func (a *app) seedCmd() *cobra.Command {
	var users, comments int
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake users and comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if users < 0 || comments < 0 {
				return errors.New("--users and --comments must not be negative")
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			s := seed.New(faker.New(), store.NewUserStore(db), store.NewCommentStore(db), store.NewRecipeStore(db))
			s.Password = password

			emails, err := s.Users(ctx, users)
			if err != nil {
				return err
			}
			n, err := s.Comments(ctx, comments, emails)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users=%d comments=%d\n", len(emails), n)
			return nil
		},
	}
	cmd.Flags().IntVar(&users, "users", 10, "number of users")
	cmd.Flags().IntVar(&comments, "comments", 0, "number of comments")
	cmd.Flags().StringVar(&password, "password", seed.DefaultPassword, "password for every seeded user")
	return cmd
}
