// Package service implements the agent service operations behind the HTTP API.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/agentloop"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/agents"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/config"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/knowledge"
	store "github.com/YassineZAIBI/virtual-ppo-ppm/internal/repository"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/router"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/tools"
)

var (
	// ErrInvalidRequest marks errors caused by the caller's input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrActionNotFound is returned for unknown pending action IDs.
	ErrActionNotFound = errors.New("pending action not found")
)

// requestError carries a user-facing message and matches ErrInvalidRequest.
type requestError struct {
	msg string
}

func (e *requestError) Error() string        { return e.msg }
func (e *requestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalidf(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	store     store.Store
	agents    *agents.Registry
	router    *router.Router
	retriever *knowledge.Retriever
	runner    *agentloop.Runner
	invoker   tools.Invoker
	ingester  *knowledge.Ingester
	config    *config.Config
	logger    *zap.Logger
}

func New(st store.Store, registry *agents.Registry, rt *router.Router, retriever *knowledge.Retriever,
	runner *agentloop.Runner, invoker tools.Invoker, ingester *knowledge.Ingester, cfg *config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		agents:    registry,
		router:    rt,
		retriever: retriever,
		runner:    runner,
		invoker:   invoker,
		ingester:  ingester,
		config:    cfg,
		logger:    logger,
	}
}

// newID returns prefix followed by 12 hex digits.
func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
