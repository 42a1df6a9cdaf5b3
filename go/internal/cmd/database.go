package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/buffring/go/internal/command"
	"github.com/mcdev12/buffring/go/internal/config"
	"github.com/mcdev12/buffring/go/internal/journal"
	"github.com/rs/zerolog/log"
)

// setupJournal returns the command recorder and a close func for it
func setupJournal(ctx context.Context, cfg config.JournalConfig) (command.Recorder, func(), error) {
	if !cfg.Enabled {
		log.Info().Msg("command journal disabled")
		return journal.NoopJournal{}, func() {}, nil
	}

	j, pool, err := journal.Open(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open command journal: %w", err)
	}

	log.Info().
		Str("user", cfg.DB.User).
		Str("host", cfg.DB.Host).
		Int("port", cfg.DB.Port).
		Str("database", cfg.DB.Database).
		Msg("connected to journal database")
	return j, pool.Close, nil
}
