package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/chat"
	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	conf, _ := config.Load()
	var (
		baseURL      string
		systemPrompt string
		logLevel     string
	)
	cmd := &cobra.Command{
		Use:          "chat",
		Short:        "Talk to the campaign assistant from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			session := chat.NewSession(chat.NewClient(baseURL, nil, logger), systemPrompt, logger)
			return repl(cmd, session, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", conf.Chat.APIURL, "assistant backend base URL")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", conf.Chat.SystemPrompt, "system prompt sent with every message")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
	return cmd
}

// repl reads one message per line. "/reset" starts a new conversation and
// "/quit" exits.
func repl(cmd *cobra.Command, session *chat.Session, in io.Reader, out io.Writer, logger *zap.Logger) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := session.Reset(ctx); err != nil {
				fmt.Fprintf(out, "reset failed: %v\n", err)
			} else {
				fmt.Fprintln(out, "conversation cleared")
			}
		default:
			reply, err := session.Send(ctx, line, func(chunk string) { fmt.Fprint(out, chunk) })
			if err != nil {
				logger.Debug("send failed", zap.Error(err))
				fmt.Fprint(out, "\n"+reply.Content)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
