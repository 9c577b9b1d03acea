package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPendingActionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	action := &domain.PendingAction{
		ID:            "pa_0123456789ab",
		AgentID:       domain.AgentStrategy,
		ToolName:      "jira_create_issue",
		ToolArguments: map[string]any{"summary": "Add SSO", "labels": []any{"auth"}},
		Description:   `create a Jira Story: "Add SSO"`,
		Status:        domain.ActionStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.CreatePendingAction(ctx, action))

	got, err := store.GetPendingAction(ctx, action.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, action.ToolArguments, got.ToolArguments)
	assert.Equal(t, domain.ActionStatusPending, got.Status)
	assert.Nil(t, got.Result)

	pending, err := store.ListPendingActions(ctx, domain.ActionStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	result := `{"key":"PROJ-1"}`
	ok, err := store.TransitionPendingAction(ctx, action.ID, domain.ActionStatusPending, domain.ActionStatusApproved, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.TransitionPendingAction(ctx, action.ID, domain.ActionStatusApproved, domain.ActionStatusExecuted, &result)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = store.GetPendingAction(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusExecuted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, result, *got.Result)

	pending, err = store.ListPendingActions(ctx, domain.ActionStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.ListPendingActions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTransitionPendingActionOnlyFromExpectedStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreatePendingAction(ctx, &domain.PendingAction{
		ID: "pa_aaaaaaaaaaaa", AgentID: domain.AgentCommunications, ToolName: "email_send",
		ToolArguments: map[string]any{}, Status: domain.ActionStatusPending,
	}))

	ok, err := store.TransitionPendingAction(ctx, "pa_aaaaaaaaaaaa", domain.ActionStatusPending, domain.ActionStatusApproved, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionPendingAction(ctx, "pa_aaaaaaaaaaaa", domain.ActionStatusPending, domain.ActionStatusApproved, nil)
	require.NoError(t, err)
	assert.False(t, ok, "second approval must lose")

	ok, err = store.TransitionPendingAction(ctx, "pa_aaaaaaaaaaaa", domain.ActionStatusPending, domain.ActionStatusRejected, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetPendingAction(ctx, "pa_aaaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusApproved, got.Status)
}

func TestMissingRowsReturnNil(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	action, err := store.GetPendingAction(ctx, "pa_missing")
	require.NoError(t, err)
	assert.Nil(t, action)

	doc, err := store.GetKnowledgeDocument(ctx, "kd_missing")
	require.NoError(t, err)
	assert.Nil(t, doc)

	ok, err := store.TransitionPendingAction(ctx, "pa_missing", domain.ActionStatusPending, domain.ActionStatusRejected, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToolExecutionsKeepOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	out := "[]"
	records := []domain.ToolExecution{
		{ToolName: "confluence_search", Arguments: map[string]any{"query": "q"}, Result: &out, Status: domain.ToolStatusExecuted, Timestamp: time.Now().UTC()},
		{ToolName: "email_send", Arguments: map[string]any{"to": "a"}, Status: domain.ToolStatusBlocked, Timestamp: time.Now().UTC()},
	}
	for i := range records {
		require.NoError(t, store.RecordToolExecution(ctx, "req_1", domain.AgentRisk, &records[i]))
	}
	require.NoError(t, store.RecordToolExecution(ctx, "req_2", domain.AgentRisk, &records[0]))

	got, err := store.ListToolExecutions(ctx, "req_1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "confluence_search", got[0].ToolName)
	assert.Equal(t, "[]", *got[0].Result)
	assert.Equal(t, domain.ToolStatusBlocked, got[1].Status)
	assert.Nil(t, got[1].Result)
}

func TestKnowledgeDocuments(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := &domain.KnowledgeDocument{
		ID:            "kd_abcdef012345",
		SourceType:    "url",
		SourceName:    "Release Notes",
		SourceURL:     "https://example.com/notes",
		Domain:        "example.com",
		Content:       "Version 2",
		ContentChunks: []string{"Version 2"},
		CharCount:     9,
		ChunkCount:    1,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.CreateKnowledgeDocument(ctx, doc))
	assert.Error(t, store.CreateKnowledgeDocument(ctx, doc), "duplicate id must fail")

	got, err := store.GetKnowledgeDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.ContentChunks, got.ContentChunks)
	assert.Equal(t, "example.com", got.Domain)
	assert.Equal(t, "", got.FileType)

	all, err := store.ListKnowledgeDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
