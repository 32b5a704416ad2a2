package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flavornet/config"
	"flavornet/logging"
	"flavornet/metrics"

	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

var errCommandFailed = errors.New("command failed")

// commandMonitor feeds command timings into Prometheus.
func commandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			metrics.RecordDBCommand(e.CommandName, e.Duration, nil)
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			metrics.RecordDBCommand(e.CommandName, e.Duration, errCommandFailed)
		},
	}
}

// Connect dials MongoDB, pings it and sets Client and DB.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	log := logging.With("database")
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetBSONOptions(&options.BSONOptions{NilSliceAsEmpty: true}).
		SetMonitor(commandMonitor())

	client, err := mongo.Connect(opts)
	if err != nil {
		log.Error().Err(err).Msg("mongo connect failed")
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		log.Error().Err(err).Msg("mongo ping failed")
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	Client = client
	DB = client.Database(cfg.Database)
	log.Info().Str("database", cfg.Database).Msg("MongoDB connected successfully")
	return DB, nil
}

// Ping reports whether the connected server answers within the context.
func Ping(ctx context.Context) error {
	if Client == nil {
		return errors.New("mongo client not connected")
	}
	return Client.Ping(ctx, nil)
}

func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	err := Client.Disconnect(ctx)
	Client, DB = nil, nil
	return err
}
