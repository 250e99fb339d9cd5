// Command rag ingests a document into a vector store and answers questions
// about it using only the retrieved context.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/config"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/rag"
)

type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "rag",
		Short:        "Ask questions about an ingested document",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newIngestCmd(a),
		newChatCmd(a),
		newAskCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) pipeline(ctx context.Context) (*rag.Pipeline, error) {
	p, err := rag.New(ctx, a.cfg, rag.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise pipeline: %w", err)
	}
	return p, nil
}
