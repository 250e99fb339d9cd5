package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/rag"
)

func newIngestCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Split, embed and store a PDF, Markdown or text document",
		Long: `Loads the document at path (default: document.path or PDF_PATH), splits it
into overlapping chunks, embeds them and stores them in the configured collection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return a.runIngest(ctx, cmd, path, reset)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "replace the collection contents with this document")
	return cmd
}

func (a *app) runIngest(ctx context.Context, cmd *cobra.Command, path string, reset bool) error {
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = getProgressBar(total, "Armazenando chunks")
		}
		_ = bar.Set(done)
	}

	result, err := p.Ingest(ctx, path, rag.WithReset(reset), rag.WithIngestProgress(progress))
	out := cmd.OutOrStdout()
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(out)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if result.NoOp {
		fmt.Fprintln(out, color.YellowString("Nenhum conteúdo encontrado no documento. Nada foi ingerido."))
		return nil
	}
	fmt.Fprintln(out, color.GreenString("Ingestão concluída: %d página(s), %d chunk(s) em %s.",
		result.Documents, result.Chunks, result.Duration.Round(time.Millisecond)))
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
