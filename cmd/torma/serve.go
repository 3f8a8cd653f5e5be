package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/intorma/torma/api"
	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/internal/gemini"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the task board over HTTP.

The assistant routes answer 503 when no API key is configured; the task
and board routes work regardless. Clients receive the task list on
GET /api/events whenever it changes, including writes from other torma
processes sharing the storage.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp()
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, true)
	if err != nil {
		return err
	}

	opts := api.Options{
		Store:    store,
		Location: a.location,
		Now:      nowFunc,
		CORS:     a.cfg.Server.CORS,
		Logger:   a.logger.WithField("component", "api"),
	}
	aiOpts, err := a.assistOptions(ctx)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		a.logger.WithError(err).Warn("assistant disabled")
	case err != nil:
		return err
	default:
		opts.Extractor = assist.NewExtractor(aiOpts)
		opts.Briefer = assist.NewBriefer(aiOpts)
		opts.Speaker = assist.NewSpeaker(aiOpts)
		opts.Illustrator = assist.NewIllustrator(aiOpts)
	}

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	return api.New(opts).Run(ctx, addr)
}
