// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSessionService is a SQLite-backed SessionService.
//
// By default it uses a shared in-memory database that is lost when the
// process ends. For persistent storage, provide a file path as the data
// source name.
type SQLiteSessionService struct {
	dbDSN string
	db    *sql.DB
	mu    sync.Mutex
}

type SQLiteSessionServiceParams struct {
	// Optional database data source name.
	// Defaults to "file::memory:?cache=shared" (in-memory database).
	DBDataSourceName string
}

// NewSQLiteSessionService opens the database and creates the schema.
func NewSQLiteSessionService(ctx context.Context, params SQLiteSessionServiceParams) (_ *SQLiteSessionService, err error) {
	s := &SQLiteSessionService{
		dbDSN: cmp.Or(params.DBDataSourceName, "file::memory:?cache=shared"),
	}

	defer func() {
		if err != nil {
			if e := s.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	}()

	s.db, err = sql.Open("sqlite3", s.dbDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	err = s.initDB(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSessionService) initDB(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS story_sessions (
			app_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			current_story TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (app_name, user_id, session_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS story_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			app_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			author TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_story_events_session
		ON story_events (app_name, user_id, session_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create events index: %w", err)
	}
	return nil
}

func (s *SQLiteSessionService) Create(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO story_sessions (app_name, user_id, session_id)
		VALUES (?, ?, ?)
	`, appName, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return s.getLocked(ctx, appName, userID, sessionID)
}

func (s *SQLiteSessionService) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, appName, userID, sessionID)
}

func (s *SQLiteSessionService) getLocked(ctx context.Context, appName, userID, sessionID string) (_ *Session, err error) {
	session := &Session{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT current_story, created_at, updated_at FROM story_sessions
		WHERE app_name = ? AND user_id = ? AND session_id = ?
	`, appName, userID, sessionID).Scan(&session.CurrentStory, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, author, role, text, created_at FROM story_events
		WHERE app_name = ? AND user_id = ? AND session_id = ?
		ORDER BY id ASC
	`, appName, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying session events: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()

	for rows.Next() {
		var event Event
		if err = rows.Scan(&event.ID, &event.Author, &event.Role, &event.Text, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("sql rows scan error: %w", err)
		}
		session.Events = append(session.Events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows scan error: %w", err)
	}
	return session, nil
}

func (s *SQLiteSessionService) AppendEvents(ctx context.Context, appName, userID, sessionID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range events {
		createdAt := event.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO story_events (app_name, user_id, session_id, event_id, author, role, text, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, appName, userID, sessionID, event.ID, event.Author, event.Role, event.Text, createdAt)
		if err != nil {
			return fmt.Errorf("error inserting event: %w", err)
		}
	}

	return s.touchLocked(ctx, appName, userID, sessionID)
}

func (s *SQLiteSessionService) UpdateCurrentStory(ctx context.Context, appName, userID, sessionID, storyText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE story_sessions SET current_story = ?, updated_at = CURRENT_TIMESTAMP
		WHERE app_name = ? AND user_id = ? AND session_id = ?
	`, storyText, appName, userID, sessionID)
	if err != nil {
		return fmt.Errorf("error updating current story: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteSessionService) touchLocked(ctx context.Context, appName, userID, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE story_sessions SET updated_at = CURRENT_TIMESTAMP
		WHERE app_name = ? AND user_id = ? AND session_id = ?
	`, appName, userID, sessionID)
	if err != nil {
		return fmt.Errorf("error updating session timestamp: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteSessionService) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
