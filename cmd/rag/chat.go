package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exitWords = map[string]struct{}{
	"sair": {}, "stop": {}, "exit": {}, "quit": {},
}

const ruler = "============================================================"

type asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive question loop over the ingested document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ruler)
			fmt.Fprintln(out, "Chat RAG - Sistema de Busca em Documentos")
			fmt.Fprintln(out, ruler)
			fmt.Fprintln(out, "Inicializando sistema...")
			fmt.Fprintln(out)

			p, err := a.pipeline(ctx)
			if err != nil {
				fmt.Fprintln(out, color.RedString("Não foi possível iniciar o chat. Verifique os erros de inicialização."))
				return err
			}
			defer p.Close()

			fmt.Fprintln(out, "Sistema iniciado com sucesso!")
			fmt.Fprintln(out, "Digite suas perguntas ou 'sair'/'stop' para encerrar.")
			fmt.Fprintln(out, ruler)
			fmt.Fprintln(out)

			runChat(ctx, cmd.InOrStdin(), out, p)
			return nil
		},
	}
}

// runChat reads one question per line until an exit word, EOF or ctx is
// done. A failed question is reported and the loop goes on.
func runChat(ctx context.Context, in io.Reader, out io.Writer, a asker) {
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	prompt := color.New(color.FgCyan, color.Bold)
	assistant := color.New(color.FgGreen, color.Bold)

	for {
		prompt.Fprint(out, "Você: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n\nChat interrompido. Até logo!")
			return
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out, "\n\nEncerrando o chat. Até logo!")
			return
		}

		question := strings.TrimSpace(line)
		if _, exit := exitWords[strings.ToLower(question)]; exit {
			fmt.Fprintln(out, "\nEncerrando o chat. Até logo!")
			return
		}
		if question == "" {
			continue
		}

		fmt.Fprint(out, "\n")
		assistant.Fprint(out, "Assistente: ")
		answer, err := a.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(out, color.RedString("Erro ao processar pergunta: %v", err))
		} else {
			fmt.Fprintln(out, answer)
		}
		fmt.Fprintln(out)
	}
}
