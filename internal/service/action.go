package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

const (
	decisionApprove = "approve"
	decisionReject  = "reject"
)

// DecideAction approves or rejects a pending action. Approval executes the tool
// with the supplied arguments, or with the stored ones when the request names
// no tool. Requests for actions that were never stored are honoured as-is.
func (s *Service) DecideAction(ctx context.Context, req domain.ActionDecisionRequest) (*domain.ActionDecisionResponse, error) {
	if req.ActionID == "" {
		return nil, invalidf("action_id is required")
	}
	decision := strings.ToLower(strings.TrimSpace(req.Decision))
	if decision != decisionApprove && decision != decisionReject {
		return nil, invalidf("decision must be 'approve' or 'reject'")
	}

	stored, err := s.lookupAction(ctx, req.ActionID)
	if err != nil {
		return nil, err
	}
	if stored != nil && stored.Status != domain.ActionStatusPending {
		return nil, invalidf("action %s is already %s", stored.ID, stored.Status)
	}

	if decision == decisionReject {
		if err := s.claimAction(ctx, stored, domain.ActionStatusRejected); err != nil {
			return nil, err
		}
		s.logger.Info("pending action rejected", zap.String("action_id", req.ActionID))
		return &domain.ActionDecisionResponse{Status: string(domain.ActionStatusRejected), ActionID: req.ActionID}, nil
	}

	toolName, args := req.ToolName, req.ToolArguments
	if toolName == "" {
		if stored == nil {
			return nil, invalidf("tool_name is required to approve an unknown action")
		}
		toolName, args = stored.ToolName, stored.ToolArguments
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := s.claimAction(ctx, stored, domain.ActionStatusApproved); err != nil {
		return nil, err
	}
	result := s.invoker.Execute(ctx, toolName, args)
	s.recordExecuted(ctx, stored, result.Content)
	s.logger.Info("pending action executed",
		zap.String("action_id", req.ActionID),
		zap.String("tool", toolName),
		zap.Bool("is_error", result.IsError))

	isError := result.IsError
	return &domain.ActionDecisionResponse{
		Status:   string(domain.ActionStatusExecuted),
		ActionID: req.ActionID,
		Result:   &result.Content,
		IsError:  &isError,
	}, nil
}

// GetPendingAction returns a stored action or ErrActionNotFound.
func (s *Service) GetPendingAction(ctx context.Context, actionID string) (*domain.PendingAction, error) {
	action, err := s.lookupAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	return action, nil
}

// ListPendingActions lists stored actions, optionally filtered by status.
func (s *Service) ListPendingActions(ctx context.Context, status string) ([]domain.PendingAction, error) {
	st := domain.ActionStatus(strings.ToLower(status))
	switch st {
	case "", domain.ActionStatusPending, domain.ActionStatusApproved, domain.ActionStatusRejected, domain.ActionStatusExecuted:
	default:
		return nil, invalidf("unknown action status: %q", status)
	}
	if s.store == nil {
		return []domain.PendingAction{}, nil
	}
	actions, err := s.store.ListPendingActions(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending actions: %w", err)
	}
	return actions, nil
}

func (s *Service) lookupAction(ctx context.Context, actionID string) (*domain.PendingAction, error) {
	if s.store == nil {
		return nil, nil
	}
	action, err := s.store.GetPendingAction(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending action: %w", err)
	}
	return action, nil
}

// claimAction moves a stored action out of pending. Only one concurrent
// decision can win; the others get an invalid request error.
func (s *Service) claimAction(ctx context.Context, action *domain.PendingAction, status domain.ActionStatus) error {
	if action == nil {
		return nil
	}
	ok, err := s.store.TransitionPendingAction(ctx, action.ID, domain.ActionStatusPending, status, nil)
	if err != nil {
		return fmt.Errorf("failed to update pending action: %w", err)
	}
	if !ok {
		return invalidf("action %s was already decided", action.ID)
	}
	action.Status = status
	return nil
}

func (s *Service) recordExecuted(ctx context.Context, action *domain.PendingAction, result string) {
	if action == nil {
		return
	}
	ok, err := s.store.TransitionPendingAction(ctx, action.ID, domain.ActionStatusApproved, domain.ActionStatusExecuted, &result)
	if err != nil || !ok {
		s.logger.Error("failed to record executed action", zap.String("action_id", action.ID), zap.Bool("updated", ok), zap.Error(err))
		return
	}
	action.Status = domain.ActionStatusExecuted
}
