package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/router"
)

var routeKeywordsOnly bool

var routeCmd = &cobra.Command{
	Use:   "route [message]",
	Short: "Show which agent would handle a message",
	Long: `Runs the router on a message and prints the chosen agent and the tier
that chose it. Without --keywords-only the LLM classifier is consulted when
no keyword matches; it is configured from LLM_PROVIDER, LLM_API_KEY,
LLM_ENDPOINT and LLM_MODEL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeKeywordsOnly, "keywords-only", false, "skip the LLM classifier")
}

func runRoute(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	if routeKeywordsOnly {
		agent, tier := router.DefaultAgent, domain.RouteDefault
		if a, ok := router.MatchKeywords(router.Rules, message); ok {
			agent, tier = a, domain.RouteKeyword
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", agent, tier)
		return nil
	}

	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}
	cfg := llm.ConfigFromSettings(domain.LLMSettings{
		Provider:    os.Getenv("LLM_PROVIDER"),
		APIKey:      os.Getenv("LLM_API_KEY"),
		APIEndpoint: os.Getenv("LLM_ENDPOINT"),
		Model:       os.Getenv("LLM_MODEL"),
	})
	r := router.New(llm.NewClient(30*time.Second, logger), logger)
	d := r.Route(cmd.Context(), message, nil, cfg)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", d.Agent, d.Tier)
	return nil
}
