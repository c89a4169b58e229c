package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/dbconfig"
	"github.com/mcdev12/fpldraft/go/internal/divisions"
	"github.com/mcdev12/fpldraft/go/internal/draft/repository"
)

// Creates the schema and the draft state of every division in a league file.
// Divisions that already have a draft are left as they are.
func main() {
	leagueFile := flag.String("league", "league.yaml", "league file to seed from")
	flag.Parse()

	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx := context.Background()

	league, err := divisions.LoadFile(*leagueFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load league: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	poolCfg, err := cfg.PoolConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	if err := league.Initialize(ctx, repo, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	for _, d := range league.Divisions() {
		state, err := repo.ReadState(ctx, d.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", d.ID, err)
			continue
		}
		fmt.Printf("%-16s pick=%d/%d active=%t on_clock=%s\n",
			d.ID, state.CurrentPick, state.TotalPicks(), state.IsActive, state.CurrentUserID())
	}
}
