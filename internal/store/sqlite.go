package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teabuddy/server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS tea_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT UNIQUE,
		tea_type TEXT NOT NULL,
		tea_style TEXT NOT NULL,
		brewing_temp INTEGER,
		steep_time INTEGER,
		notes TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS tea_steeps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tea_session_id INTEGER NOT NULL REFERENCES tea_sessions(id),
		steep_number INTEGER NOT NULL,
		temperature INTEGER,
		steep_time_min INTEGER,
		steep_time_max INTEGER,
		actual_steep_time INTEGER,
		notes TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER,
		UNIQUE(tea_session_id, steep_number)
	);
	CREATE INDEX IF NOT EXISTS idx_steeps_session ON tea_steeps(tea_session_id);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		prompt_tokens INTEGER,
		completion_tokens INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateSession inserts a new tea session and fills in its ID.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.TeaSession) error {
	query := `
	INSERT INTO tea_sessions (thread_id, tea_type, tea_style, brewing_temp, steep_time, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		nullString(session.ThreadID), session.TeaType, session.TeaStyle,
		nullInt(session.BrewingTemp), nullInt(session.SteepTime), nullString(session.Notes),
		session.CreatedAt.UnixMilli(), nullTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert tea session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("tea session insert id: %w", err)
	}
	session.ID = id
	return nil
}

// GetSession retrieves a tea session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*domain.TeaSession, error) {
	query := `
		SELECT id, thread_id, tea_type, tea_style, brewing_temp, steep_time, notes, created_at, updated_at
		FROM tea_sessions WHERE id = ?`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan tea session row: %w", err)
	}
	return session, nil
}

// ListSessions returns all tea sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*domain.TeaSession, error) {
	query := `
		SELECT id, thread_id, tea_type, tea_style, brewing_temp, steep_time, notes, created_at, updated_at
		FROM tea_sessions ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tea sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.TeaSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tea session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tea sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSession updates the mutable fields of a session.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.TeaSession) error {
	query := `
	UPDATE tea_sessions
	SET tea_type = ?, tea_style = ?, brewing_temp = ?, steep_time = ?, notes = ?, updated_at = ?
	WHERE id = ?`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		session.TeaType, session.TeaStyle,
		nullInt(session.BrewingTemp), nullInt(session.SteepTime), nullString(session.Notes),
		now.UnixMilli(), session.ID,
	)
	if err != nil {
		return fmt.Errorf("update tea session: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	session.UpdatedAt = &now
	return nil
}

// BindSessionThread binds a remote conversation thread to a session.
func (s *SQLiteStore) BindSessionThread(ctx context.Context, sessionID int64, threadID string) error {
	query := `UPDATE tea_sessions SET thread_id = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, threadID, time.Now().UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("bind session thread: %w", err)
	}
	return requireRow(result)
}

// DeleteSessionCascade deletes a session, its steeps and its thread's messages.
func (s *SQLiteStore) DeleteSessionCascade(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback()

	var threadID sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT thread_id FROM tea_sessions WHERE id = ?`, id).Scan(&threadID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read session thread for delete: %w", err)
	}

	if threadID.Valid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID.String); err != nil {
			return fmt.Errorf("delete thread messages: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tea_steeps WHERE tea_session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session steeps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tea_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tea session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}
	return nil
}

// CreateSteep inserts a new steep, assigning the next steep number.
func (s *SQLiteStore) CreateSteep(ctx context.Context, steep *domain.TeaSteep) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin steep insert: %w", err)
	}
	defer tx.Rollback()

	// Numbers grow monotonically per session; deleted numbers are not reused.
	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(steep_number), 0) + 1 FROM tea_steeps WHERE tea_session_id = ?`,
		steep.TeaSessionID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("next steep number: %w", err)
	}
	steep.SteepNumber = next

	if steep.CreatedAt.IsZero() {
		steep.CreatedAt = time.Now()
	}
	now := steep.CreatedAt
	steep.UpdatedAt = &now

	result, err := tx.ExecContext(ctx, `
		INSERT INTO tea_steeps (tea_session_id, steep_number, temperature, steep_time_min, steep_time_max, actual_steep_time, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		steep.TeaSessionID, steep.SteepNumber,
		nullInt(steep.Temperature), nullInt(steep.SteepTimeMin), nullInt(steep.SteepTimeMax),
		nullInt(steep.ActualSteepTime), nullString(steep.Notes),
		steep.CreatedAt.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert steep: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("steep insert id: %w", err)
	}
	steep.ID = id

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit steep insert: %w", err)
	}
	return nil
}

// GetSteep retrieves one steep scoped to a session.
func (s *SQLiteStore) GetSteep(ctx context.Context, sessionID, steepID int64) (*domain.TeaSteep, error) {
	query := `
		SELECT id, tea_session_id, steep_number, temperature, steep_time_min, steep_time_max, actual_steep_time, notes, created_at, updated_at
		FROM tea_steeps WHERE id = ? AND tea_session_id = ?`

	steep, err := scanSteep(s.db.QueryRowContext(ctx, query, steepID, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan steep row: %w", err)
	}
	return steep, nil
}

// ListSteeps returns a session's steeps ordered by steep number.
func (s *SQLiteStore) ListSteeps(ctx context.Context, sessionID int64) ([]*domain.TeaSteep, error) {
	query := `
		SELECT id, tea_session_id, steep_number, temperature, steep_time_min, steep_time_max, actual_steep_time, notes, created_at, updated_at
		FROM tea_steeps WHERE tea_session_id = ? ORDER BY steep_number`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query steeps: %w", err)
	}
	defer rows.Close()

	var steeps []*domain.TeaSteep
	for rows.Next() {
		steep, err := scanSteep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan steep row: %w", err)
		}
		steeps = append(steeps, steep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steeps: %w", err)
	}
	return steeps, nil
}

// UpdateSteep updates the mutable fields of a steep.
func (s *SQLiteStore) UpdateSteep(ctx context.Context, steep *domain.TeaSteep) error {
	query := `
	UPDATE tea_steeps
	SET temperature = ?, steep_time_min = ?, steep_time_max = ?, actual_steep_time = ?, notes = ?, updated_at = ?
	WHERE id = ? AND tea_session_id = ?`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		nullInt(steep.Temperature), nullInt(steep.SteepTimeMin), nullInt(steep.SteepTimeMax),
		nullInt(steep.ActualSteepTime), nullString(steep.Notes),
		now.UnixMilli(), steep.ID, steep.TeaSessionID,
	)
	if err != nil {
		return fmt.Errorf("update steep: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	steep.UpdatedAt = &now
	return nil
}

// DeleteSteep deletes one steep scoped to a session.
func (s *SQLiteStore) DeleteSteep(ctx context.Context, sessionID, steepID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tea_steeps WHERE id = ? AND tea_session_id = ?`, steepID, sessionID)
	if err != nil {
		return fmt.Errorf("delete steep: %w", err)
	}
	return requireRow(result)
}

// AppendMessage appends a chat turn to the message log.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (thread_id, role, content, prompt_tokens, completion_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullString(msg.ThreadID), msg.Role, msg.Content,
		nullInt(msg.PromptTokens), nullInt(msg.CompletionTokens),
		msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("message insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// ListThreadMessages returns all messages for a thread in creation order.
func (s *SQLiteStore) ListThreadMessages(ctx context.Context, threadID string) ([]*domain.Message, error) {
	query := `
		SELECT id, thread_id, role, content, prompt_tokens, completion_tokens, created_at
		FROM messages WHERE thread_id = ? ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("query thread messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var threadID sql.NullString
		var promptTokens, completionTokens sql.NullInt64
		var createdAt int64

		if err := rows.Scan(
			&msg.ID, &threadID, &msg.Role, &msg.Content,
			&promptTokens, &completionTokens, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.ThreadID = stringPtr(threadID)
		msg.PromptTokens = intPtr(promptTokens)
		msg.CompletionTokens = intPtr(completionTokens)
		msg.CreatedAt = time.UnixMilli(createdAt)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread messages: %w", err)
	}
	return msgs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.TeaSession, error) {
	var session domain.TeaSession
	var threadID, notes sql.NullString
	var brewingTemp, steepTime, updatedAt sql.NullInt64
	var createdAt int64

	if err := row.Scan(
		&session.ID, &threadID, &session.TeaType, &session.TeaStyle,
		&brewingTemp, &steepTime, &notes, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	session.ThreadID = stringPtr(threadID)
	session.BrewingTemp = intPtr(brewingTemp)
	session.SteepTime = intPtr(steepTime)
	session.Notes = stringPtr(notes)
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = timePtr(updatedAt)
	return &session, nil
}

func scanSteep(row scanner) (*domain.TeaSteep, error) {
	var steep domain.TeaSteep
	var temperature, steepTimeMin, steepTimeMax, actualSteepTime, updatedAt sql.NullInt64
	var notes sql.NullString
	var createdAt int64

	if err := row.Scan(
		&steep.ID, &steep.TeaSessionID, &steep.SteepNumber,
		&temperature, &steepTimeMin, &steepTimeMax, &actualSteepTime,
		&notes, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	steep.Temperature = intPtr(temperature)
	steep.SteepTimeMin = intPtr(steepTimeMin)
	steep.SteepTimeMax = intPtr(steepTimeMax)
	steep.ActualSteepTime = intPtr(actualSteepTime)
	steep.Notes = stringPtr(notes)
	steep.CreatedAt = time.UnixMilli(createdAt)
	steep.UpdatedAt = timePtr(updatedAt)
	return &steep, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
