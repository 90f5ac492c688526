package mailqueue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// timeLayout is fixed-width (unlike RFC3339Nano, which trims trailing
// zeros) so ORDER BY created_at stays correct as plain text comparison.
// Timestamps are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type sqliteStore struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// Open initializes the sqlite-backed store, creating the file and schema
// as needed.
func Open(cfg StoreConfig, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("mailqueue: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log, now: time.Now}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Enqueue(ctx context.Context, in EnqueueInput) (Item, error) {
	item := Item{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Recipient: in.Recipient,
		Subject:   in.Subject,
		HTMLBody:  in.HTMLBody,
		TextBody:  in.TextBody,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mail_queue(id, user_id, recipient, subject, html_body, text_body, status, attempts, created_at)
		 VALUES(?,?,?,?,?,?,?,0,?)`,
		item.ID, nullStr(item.UserID), item.Recipient, item.Subject, item.HTMLBody, item.TextBody,
		string(item.Status), item.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *sqliteStore) SelectBatch(ctx context.Context, limit, maxAttempts int) ([]Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, recipient, subject, html_body, text_body, status, attempts, last_error, created_at, sent_at
		 FROM mail_queue
		 WHERE status IN (?, ?) AND attempts < ?
		 ORDER BY created_at ASC
		 LIMIT ?`,
		string(StatusPending), string(StatusFailed), maxAttempts, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Claim is the single concurrency primitive of the queue: a conditional
// UPDATE whose affected-row count decides ownership. Zero rows means
// another processor transitioned the item first.
func (s *sqliteStore) Claim(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mail_queue
		 SET status = ?, attempts = attempts + 1, last_error = NULL
		 WHERE id = ? AND status IN (?, ?)`,
		string(StatusSending), id, string(StatusPending), string(StatusFailed),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *sqliteStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE mail_queue SET status = ?, sent_at = ?, last_error = NULL WHERE id = ?`,
		string(StatusSent), s.now().UTC().Format(timeLayout), id,
	)
	return err
}

func (s *sqliteStore) MarkFailed(ctx context.Context, id, sendErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE mail_queue SET status = ?, last_error = ? WHERE id = ?`,
		string(StatusFailed), nullStr(sendErr), id,
	)
	return err
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Item, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, recipient, subject, html_body, text_body, status, attempts, last_error, created_at, sent_at
		 FROM mail_queue WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

func (s *sqliteStore) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM mail_queue GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[Status(st)] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (Item, error) {
	var (
		item      Item
		userID    sql.NullString
		lastError sql.NullString
		status    string
		createdAt string
		sentAt    sql.NullString
	)
	err := r.Scan(&item.ID, &userID, &item.Recipient, &item.Subject, &item.HTMLBody, &item.TextBody,
		&status, &item.Attempts, &lastError, &createdAt, &sentAt)
	if err != nil {
		return Item{}, err
	}
	item.UserID = userID.String
	item.LastError = lastError.String
	item.Status = Status(status)
	if item.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Item{}, fmt.Errorf("mailqueue: bad created_at for %s: %w", item.ID, err)
	}
	if sentAt.Valid {
		if item.SentAt, err = time.Parse(timeLayout, sentAt.String); err != nil {
			return Item{}, fmt.Errorf("mailqueue: bad sent_at for %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
