package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"flavornet/config"
	"flavornet/database"
	"flavornet/logging"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// app carries state shared by every subcommand.
type app struct {
	cfg     *config.Config
	db      *mongo.Database
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "flavornet-admin",
		Short:         "FlavorNet database administration",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console", Output: cmd.ErrOrStderr()})
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.db == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return database.Disconnect(ctx)
		},
	}
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Minute, "overall deadline for the command")

	root.AddCommand(
		a.collectionsCmd(),
		a.indexesCmd(),
		a.findByFiltersCmd(),
		a.findByIngredientCmd(),
		a.importCmd(),
		a.retagCmd(),
		a.seedCmd(),
	)
	return root
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func (a *app) connect(ctx context.Context) (*mongo.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Connect(ctx, a.cfg.Mongo)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// envList splits a comma-separated environment variable.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
