package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warranty-agent-poc-v1/server/internal/agent/graph"
	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const chatHelp = "Ask about a vehicle by VIN. Commands: /reset clears the conversation, /exit quits."

func newChatCommand(build appBuilder, config func() *AppConfig) *cobra.Command {
	var conversationID string

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the warranty prediction agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &syncWriter{w: cmd.OutOrStdout()}
			a, err := build(cmd.Context(), config(), appOptions{
				withAgent: true,
				sink: func(_ context.Context, ev model.StatusEvent) {
					if line := formatStatus(ev); line != "" {
						fmt.Fprintln(out, statusStyle.Render(line))
					}
				},
			})
			if err != nil {
				return err
			}
			defer a.Close()

			if conversationID == "" {
				conversationID = uuid.NewString()
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), out, a.runner, conversationID)
		},
	}
	chatCmd.Flags().StringVar(&conversationID, "conversation", "", "resume a conversation by id (default: new id)")
	return chatCmd
}

// runChat reads one query per line until EOF or /exit.
func runChat(ctx context.Context, in io.Reader, out io.Writer, runner graph.Runner, conversationID string) error {
	fmt.Fprintln(out, chatHelp)
	fmt.Fprintln(out, statusStyle.Render("conversation: "+conversationID))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := runner.Reset(ctx, conversationID); err != nil {
				fmt.Fprintln(out, errorStyle.Render(errx.UserMessage(err)))
				continue
			}
			fmt.Fprintln(out, statusStyle.Render("Conversation cleared."))
			continue
		}

		answer, err := runner.Invoke(ctx, model.QueryInput{ConversationID: conversationID, Query: line})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, errorStyle.Render(errx.UserMessage(err)))
			continue
		}
		fmt.Fprintln(out, answer)
	}
}

// formatStatus renders a status event as a one-line progress message.
func formatStatus(ev model.StatusEvent) string {
	switch ev.Kind {
	case model.StatusThinking:
		return "Thinking..."
	case model.StatusToolCall:
		return fmt.Sprintf("Calling tool: %s with args %s", ev.ToolName, ev.Arguments)
	case model.StatusToolResult:
		return fmt.Sprintf("Tool %s finished", ev.ToolName)
	case model.StatusToolError:
		return fmt.Sprintf("Tool %s failed: %s", ev.ToolName, ev.Detail)
	default:
		return ""
	}
}

// syncWriter serializes status lines written from graph callbacks with the
// REPL's own output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
