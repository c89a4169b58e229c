package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/clients/draft_client"
	"github.com/mcdev12/fpldraft/go/internal/reconcile"
)

// Follows one division's draft from the command line, printing the board on
// every change. With -pick it also submits a pick once the board is loaded.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "draft server base URL")
	userID := flag.String("user", "", "participant id")
	divisionID := flag.String("division", "", "division to follow")
	playerID := flag.Int("pick", 0, "player id to submit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *divisionID == "" || *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := draft_client.NewDraftClient(*baseURL, *userID)
	view := reconcile.NewView(*divisionID,
		reconcile.WithUser(*userID),
		reconcile.WithNotifier(reconcile.NewLogNotifier()),
	)
	session := draft_client.NewSession(client, view, draft_client.SessionConfig{
		Stream:   draft_client.DefaultStreamConfig(),
		OnChange: printBoard,
	}, nil)

	if *playerID > 0 {
		if err := session.Refresh(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to load draft")
		}
		if err := session.SubmitPick(ctx, *playerID, ""); err != nil {
			log.Error().Err(err).Int("player_id", *playerID).Msg("pick failed")
		}
	}

	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("session stopped")
	}
}

func printBoard(v *reconcile.View) {
	state, ok := v.State()
	if !ok {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s pick %d/%d", state.DivisionID, state.CurrentPick, state.TotalPicks())
	if state.IsActive {
		fmt.Fprintf(&b, ", on the clock: %s\n", state.CurrentUserID())
	} else {
		b.WriteString(", not active\n")
	}
	for _, p := range v.Picks() {
		mark := ""
		if p.IsOptimistic {
			mark = " (pending)"
		}
		fmt.Fprintf(&b, "  %3d  %-12s %s%s\n", p.PickNumber, p.UserID, p.PlayerName, mark)
	}
	fmt.Print(b.String())
}
