package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

var chatOpts struct {
	addr     string
	agent    string
	autonomy string
	provider string
	model    string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat against a running service",
	Long: `Connects to the streaming endpoint of a running service, sends each
input line as a chat request and prints loop events as they arrive.

Commands: /quit to exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatOpts.addr, "addr", "ws://localhost:8100/agent/stream", "streaming endpoint address")
	chatCmd.Flags().StringVar(&chatOpts.agent, "agent", "", "force an agent instead of routing")
	chatCmd.Flags().StringVar(&chatOpts.autonomy, "autonomy", "oversight", "autonomy level: full, oversight, advisory or manual")
	chatCmd.Flags().StringVar(&chatOpts.provider, "provider", os.Getenv("LLM_PROVIDER"), "language-model provider")
	chatCmd.Flags().StringVar(&chatOpts.model, "model", os.Getenv("LLM_MODEL"), "language-model name")
}

func runChat(cmd *cobra.Command, args []string) error {
	var agentID *domain.AgentID
	if chatOpts.agent != "" {
		id, err := domain.ParseAgentID(chatOpts.agent)
		if err != nil {
			return err
		}
		agentID = &id
	}

	conn, _, err := websocket.DefaultDialer.Dial(chatOpts.addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s\nType a message and press Enter to send.\n\n", chatOpts.addr)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var history []domain.ChatMessage
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		select {
		case <-interrupt:
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		default:
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Fprintln(out, "Bye!")
			return conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}

		req := domain.ChatRequest{Message: input, History: history, AgentID: agentID}
		req.Settings.LLM.Provider = chatOpts.provider
		req.Settings.LLM.Model = chatOpts.model
		req.Settings.Preferences.AutonomyLevel = chatOpts.autonomy
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		resp, err := readTurn(conn, out)
		if err != nil {
			return err
		}
		if resp != nil {
			history = append(history,
				domain.ChatMessage{Role: domain.RoleUser, Content: input},
				domain.ChatMessage{Role: domain.RoleAssistant, Content: resp.Response})
		}
	}
}

// readTurn prints events until the turn ends. It returns nil on an error event.
func readTurn(conn *websocket.Conn, out io.Writer) (*domain.ChatResponse, error) {
	for {
		var ev domain.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		switch ev.Type {
		case domain.EventResponse:
			var resp domain.ChatResponse
			if err := json.Unmarshal(ev.Payload, &resp); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			fmt.Fprintf(out, "\n[%s]\n%s\n", resp.AgentName, resp.Response)
			for _, pa := range resp.PendingActions {
				fmt.Fprintf(out, "  pending %s: %s\n", pa.ID, pa.Description)
			}
			fmt.Fprintln(out)
			return &resp, nil
		case domain.EventError:
			fmt.Fprintf(out, "error: %s\n", ev.Payload)
			return nil, nil
		default:
			fmt.Fprintf(out, "  %s %s %s\n", ev.Type, ev.AgentID, ev.Payload)
		}
	}
}
