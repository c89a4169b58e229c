package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/mcdev12/fpldraft/go/internal/dbconfig"
)

func setupPostgres(ctx context.Context) (*pgxpool.Pool, dbconfig.Config, error) {
	cfg := dbconfig.NewConfigFromEnv()
	poolCfg, err := cfg.PoolConfig()
	if err != nil {
		return nil, cfg, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, cfg, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return pool, cfg, nil
}

func setupFirestore(ctx context.Context, config *Config) (*firestore.Client, error) {
	var opts []option.ClientOption
	// The emulator needs no credentials.
	if f := config.Storage.Firestore.CredentialsFile; f != "" && getEnv("FIRESTORE_EMULATOR_HOST", "") == "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}

	client, err := firestore.NewClient(ctx, config.Storage.Firestore.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}
	log.Info().Str("project_id", config.Storage.Firestore.ProjectID).Msg("connected to firestore")
	return client, nil
}
