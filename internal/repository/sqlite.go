package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to an in-memory database is a separate database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pending_actions (
			action_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			tool_arguments TEXT,
			description TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			result TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			decided_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_actions_status ON pending_actions(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS tool_executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			arguments TEXT,
			result TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_executions_request ON tool_executions(request_id, id)`,
		`CREATE TABLE IF NOT EXISTS knowledge_documents (
			doc_id TEXT PRIMARY KEY,
			source_type TEXT NOT NULL,
			source_name TEXT NOT NULL,
			source_url TEXT,
			file_type TEXT,
			file_size INTEGER NOT NULL DEFAULT 0,
			domain TEXT,
			content TEXT NOT NULL,
			content_chunks TEXT NOT NULL,
			char_count INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePendingAction stores a newly gated tool call.
func (s *SQLiteStore) CreatePendingAction(ctx context.Context, action *domain.PendingAction) error {
	args, err := json.Marshal(action.ToolArguments)
	if err != nil {
		return fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	createdAt := action.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_actions (action_id, agent_id, tool_name, tool_arguments, description, status, result, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID, action.AgentID, action.ToolName, string(args), action.Description, action.Status, nullString(action.Result), createdAt)
	return err
}

// GetPendingAction retrieves a pending action by ID.
func (s *SQLiteStore) GetPendingAction(ctx context.Context, actionID string) (*domain.PendingAction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT action_id, agent_id, tool_name, tool_arguments, description, status, result, created_at FROM pending_actions WHERE action_id = ?`,
		actionID)
	action, err := scanPendingAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return action, err
}

// TransitionPendingAction moves an action from one status to another and
// stores result. It reports false when the action is missing or no longer in
// the from status, so only one caller wins a given transition.
func (s *SQLiteStore) TransitionPendingAction(ctx context.Context, actionID string, from, to domain.ActionStatus, result *string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_actions SET status = ?, result = ?, decided_at = ? WHERE action_id = ? AND status = ?`,
		to, nullString(result), time.Now().UTC(), actionID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPendingActions returns actions in the given status, oldest first. An empty status lists all.
func (s *SQLiteStore) ListPendingActions(ctx context.Context, status domain.ActionStatus) ([]domain.PendingAction, error) {
	query := `SELECT action_id, agent_id, tool_name, tool_arguments, description, status, result, created_at FROM pending_actions`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, action_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []domain.PendingAction{}
	for rows.Next() {
		action, err := scanPendingAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *action)
	}
	return actions, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPendingAction(row scanner) (*domain.PendingAction, error) {
	var action domain.PendingAction
	var args, result sql.NullString
	if err := row.Scan(&action.ID, &action.AgentID, &action.ToolName, &args, &action.Description, &action.Status, &result, &action.CreatedAt); err != nil {
		return nil, err
	}
	if args.Valid && args.String != "" {
		if err := json.Unmarshal([]byte(args.String), &action.ToolArguments); err != nil {
			return nil, fmt.Errorf("failed to decode tool arguments: %w", err)
		}
	}
	if result.Valid {
		action.Result = &result.String
	}
	return &action, nil
}

// RecordToolExecution appends an audit record for one tool call of a chat request.
func (s *SQLiteStore) RecordToolExecution(ctx context.Context, requestID string, agentID domain.AgentID, exec *domain.ToolExecution) error {
	args, err := json.Marshal(exec.Arguments)
	if err != nil {
		return fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tool_executions (request_id, agent_id, tool_name, arguments, result, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID, agentID, exec.ToolName, string(args), nullString(exec.Result), exec.Status, exec.Timestamp)
	return err
}

// ListToolExecutions returns the records of a request in insertion order.
func (s *SQLiteStore) ListToolExecutions(ctx context.Context, requestID string) ([]domain.ToolExecution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_name, arguments, result, status, created_at FROM tool_executions WHERE request_id = ? ORDER BY id ASC`,
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	execs := []domain.ToolExecution{}
	for rows.Next() {
		var exec domain.ToolExecution
		var args, result sql.NullString
		if err := rows.Scan(&exec.ToolName, &args, &result, &exec.Status, &exec.Timestamp); err != nil {
			return nil, err
		}
		if args.Valid && args.String != "" {
			if err := json.Unmarshal([]byte(args.String), &exec.Arguments); err != nil {
				return nil, fmt.Errorf("failed to decode tool arguments: %w", err)
			}
		}
		if result.Valid {
			exec.Result = &result.String
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

// CreateKnowledgeDocument stores an ingested document.
func (s *SQLiteStore) CreateKnowledgeDocument(ctx context.Context, doc *domain.KnowledgeDocument) error {
	chunks, err := json.Marshal(doc.ContentChunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO knowledge_documents (doc_id, source_type, source_name, source_url, file_type, file_size, domain, content, content_chunks, char_count, chunk_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SourceType, doc.SourceName, doc.SourceURL, doc.FileType, doc.FileSize, doc.Domain,
		doc.Content, string(chunks), doc.CharCount, doc.ChunkCount, doc.CreatedAt)
	return err
}

const knowledgeColumns = `doc_id, source_type, source_name, source_url, file_type, file_size, domain, content, content_chunks, char_count, chunk_count, created_at`

// GetKnowledgeDocument retrieves a document by ID.
func (s *SQLiteStore) GetKnowledgeDocument(ctx context.Context, docID string) (*domain.KnowledgeDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_documents WHERE doc_id = ?`, docID)
	doc, err := scanKnowledgeDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, err
}

// ListKnowledgeDocuments returns every document, oldest first.
func (s *SQLiteStore) ListKnowledgeDocuments(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_documents ORDER BY created_at ASC, doc_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []domain.KnowledgeDocument{}
	for rows.Next() {
		doc, err := scanKnowledgeDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanKnowledgeDocument(row scanner) (*domain.KnowledgeDocument, error) {
	var doc domain.KnowledgeDocument
	var sourceURL, fileType, dom sql.NullString
	var chunks string
	if err := row.Scan(&doc.ID, &doc.SourceType, &doc.SourceName, &sourceURL, &fileType, &doc.FileSize, &dom,
		&doc.Content, &chunks, &doc.CharCount, &doc.ChunkCount, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.SourceURL = sourceURL.String
	doc.FileType = fileType.String
	doc.Domain = dom.String
	if err := json.Unmarshal([]byte(chunks), &doc.ContentChunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}
	return &doc, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
