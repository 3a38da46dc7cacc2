package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-image-studio/internal/client"
	"github.com/tbourn/go-image-studio/internal/config"
	"github.com/tbourn/go-image-studio/internal/history"
	"github.com/tbourn/go-image-studio/internal/repo"
	"github.com/tbourn/go-image-studio/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// app carries what every subcommand needs after startup.
type app struct {
	envFile string
	verbose bool

	cfg config.Config
	out io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "imagestudio",
		Short:         "AI image studio: DALL-E 3 generation API and terminal client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "V", false, "debug logging")

	root.AddCommand(
		newServeCmd(a),
		newGenerateCmd(a),
		newEnhanceCmd(a),
		newStudioCmd(a),
		newHistoryCmd(a),
		newExamplesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	// Variables already in the environment win over the file.
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	sysutil.ConfigureLogger(os.Stderr, cfg.LogPretty)
	sysutil.SetLogLevel(cfg.LogLevel)

	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) apiClient() *client.Client {
	return client.New(a.cfg.ServerURL, a.cfg.APIBasePath, 0)
}

// openHistory opens the configured backend and loads the store. The returned
// function stops watching and releases the backend.
func (a *app) openHistory(ctx context.Context) (*history.Store, func(), error) {
	slot, closeSlot, err := repo.OpenSlot(ctx, a.cfg.History)
	if err != nil {
		return nil, nil, err
	}
	store := history.New(slot, a.cfg.History.Limit)
	store.Load(ctx)
	log.Debug().
		Str("backend", a.cfg.History.Backend).
		Int("items", len(store.Items())).
		Msg("history loaded")

	return store, func() {
		store.Close()
		if err := closeSlot(); err != nil {
			log.Warn().Err(err).Msg("history backend close failed")
		}
	}, nil
}
