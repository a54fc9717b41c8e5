package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/sitemermaid/internal/db"
)

// ErrNotFound is returned when a notification id does not exist.
var ErrNotFound = errors.New("notification not found")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02 15:04:05.000000000"

// ListFilter controls which notifications are returned by List.
type ListFilter struct {
	Severity Severity
	// ActiveAt, when set, keeps only notifications not yet expired at that time.
	ActiveAt time.Time
	Since    time.Time
	Limit    int
	Offset   int
}

// Store persists notifications in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new notification. If n.ID is empty a UUID is generated.
// The stored notification is returned.
func (s *Store) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = n.CreatedAt.Add(DefaultSuccessTTL)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, severity, title, message, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Severity), n.Title, n.Message,
		formatTime(n.CreatedAt), formatTime(n.ExpiresAt),
	)
	if err != nil {
		return n, fmt.Errorf("inserting notification: %w", err)
	}
	return n, nil
}

// GetByID retrieves a single notification.
func (s *Store) GetByID(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, severity, title, message, created_at, expires_at
		FROM notifications WHERE id = ?`, id)

	n, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, err
}

// List returns notifications matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if !filter.ActiveAt.IsZero() {
		clauses = append(clauses, "expires_at > ?")
		args = append(args, formatTime(filter.ActiveAt))
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	query := "SELECT id, severity, title, message, created_at, expires_at FROM notifications"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

// Active returns the notifications still on display at now.
func (s *Store) Active(ctx context.Context, now time.Time) ([]Notification, error) {
	return s.List(ctx, ListFilter{ActiveAt: now})
}

// Dismiss expires a notification immediately.
func (s *Store) Dismiss(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET expires_at = ? WHERE id = ?", formatTime(now), id)
	if err != nil {
		return fmt.Errorf("dismissing notification: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Purge deletes notifications that expired before cutoff and returns how many
// were removed.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE expires_at <= ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purging notifications: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Notification, error) {
	var (
		n                  Notification
		severity           string
		created, expiresAt string
	)

	if err := sc.Scan(&n.ID, &severity, &n.Title, &n.Message, &created, &expiresAt); err != nil {
		return nil, err
	}

	n.Severity = Severity(severity)
	n.CreatedAt = parseTime(created)
	n.ExpiresAt = parseTime(expiresAt)
	return &n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	return time.Time{}
}
