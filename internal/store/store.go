package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/valpere/bolcha/internal"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; sqlite serialises writes anyway
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		original_lang TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	-- message_translations is the long-lived per-message cache, one row per language
	CREATE TABLE IF NOT EXISTS message_translations (
		message_id TEXT NOT NULL,
		lang TEXT NOT NULL,
		text TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (message_id, lang),
		FOREIGN KEY (message_id) REFERENCES messages(id)
	);

	-- session_cache persists the in-process text cache, keyed by "lang:text"
	CREATE TABLE IF NOT EXISTS session_cache (
		session_id TEXT NOT NULL,
		cache_key TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, cache_key)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateMessage inserts m together with any translations it already carries.
func (s *Store) CreateMessage(ctx context.Context, m internal.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := sq.Insert("messages").
		Columns("id", "room_id", "author", "text", "original_lang", "created_at").
		Values(m.ID, m.RoomID, m.Author, m.Text, m.OriginalLang, m.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	for lang, text := range m.Translations {
		if err := upsertTranslation(ctx, tx, m.ID, lang, text); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMessage returns the message with its translations, or ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, id string) (*internal.Message, error) {
	msgs, err := s.queryMessages(ctx, sq.Eq{"id": id}, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return &msgs[0], nil
}

// RecentMessages returns up to limit messages of the room, newest first.
func (s *Store) RecentMessages(ctx context.Context, roomID string, limit int) ([]internal.Message, error) {
	return s.queryMessages(ctx, sq.Eq{"room_id": roomID}, limit)
}

func (s *Store) queryMessages(ctx context.Context, where sq.Eq, limit int) ([]internal.Message, error) {
	q := sq.Select("id", "room_id", "author", "text", "original_lang", "created_at").
		From("messages").
		Where(where).
		OrderBy("created_at DESC", "rowid DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []internal.Message
	index := make(map[string]int)
	for rows.Next() {
		var m internal.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Author, &m.Text, &m.OriginalLang, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Translations = map[string]string{}
		index[m.ID] = len(msgs)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	query, args, err = sq.Select("message_id", "lang", "text").
		From("message_translations").
		Where(sq.Eq{"message_id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}

	trows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()

	for trows.Next() {
		var id, lang, text string
		if err := trows.Scan(&id, &lang, &text); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			msgs[i].Translations[lang] = text
		}
	}
	return msgs, trows.Err()
}

// SaveTranslation merges one language into the message's translations.
func (s *Store) SaveTranslation(ctx context.Context, messageID, lang, text string) error {
	return upsertTranslation(ctx, s.db, messageID, lang, text)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTranslation(ctx context.Context, db execer, messageID, lang, text string) error {
	query, args, err := sq.Insert("message_translations").
		Columns("message_id", "lang", "text", "updated_at").
		Values(messageID, lang, text, time.Now().UTC()).
		Suffix("ON CONFLICT(message_id, lang) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// LoadSessionCache returns every cache entry stored for session.
func (s *Store) LoadSessionCache(ctx context.Context, session string) (map[string]string, error) {
	query, args, err := sq.Select("cache_key", "translated_text").
		From("session_cache").
		Where(sq.Eq{"session_id": session}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var key, text string
		if err := rows.Scan(&key, &text); err != nil {
			return nil, err
		}
		entries[key] = text
	}
	return entries, rows.Err()
}

// SaveSessionEntry inserts or replaces one cache entry.
func (s *Store) SaveSessionEntry(ctx context.Context, session, key, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_cache (session_id, cache_key, translated_text, created_at) VALUES (?, ?, ?, ?)`,
		session, key, text, time.Now().UTC())
	return err
}

// ClearSessionCache removes the session's entries, or every entry when
// session is empty.
func (s *Store) ClearSessionCache(ctx context.Context, session string) (int64, error) {
	q := sq.Delete("session_cache")
	if session != "" {
		q = q.Where(sq.Eq{"session_id": session})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CacheStats summarises both cache tiers.
type CacheStats struct {
	Sessions     int
	Entries      int
	Messages     int
	Translations int
}

// Stats returns summary statistics for the session and per-message caches.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT session_id) FROM session_cache),
			(SELECT COUNT(*) FROM session_cache),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM message_translations)`).Scan(
		&stats.Sessions,
		&stats.Entries,
		&stats.Messages,
		&stats.Translations,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
