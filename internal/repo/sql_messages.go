package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LeventeLantos/sms-queue/internal/model"
)

const selectColumns = `id, "to", message, status, attempt_count, last_attempt_at, sent_at, fail_reason, created_at`

type SQLMessageRepo struct {
	db      *sql.DB
	dialect Dialect
	newID   func() string
}

func NewSQLMessageRepo(db *sql.DB, d Dialect) *SQLMessageRepo {
	return &SQLMessageRepo{db: db, dialect: d, newID: newID}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (r *SQLMessageRepo) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s schema: %w", r.dialect.Name, err)
		}
	}
	return nil
}

func (r *SQLMessageRepo) Insert(ctx context.Context, m model.Message) (model.Message, error) {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Message) == "" {
		return model.Message{}, fmt.Errorf("%w: to and message are required", ErrInvalidRecord)
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	rec := model.Message{
		ID:        r.newID(),
		To:        m.To,
		Message:   m.Message,
		Status:    model.Pending,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}

	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`
		INSERT INTO sms (id, "to", message, status, attempt_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.To, rec.Message, string(rec.Status), rec.AttemptCount, rec.CreatedAt)
	if err != nil {
		return model.Message{}, err
	}
	return rec, nil
}

func (r *SQLMessageRepo) FindByID(ctx context.Context, id string) (model.Message, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+selectColumns+` FROM sms WHERE id = ?`), id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, ErrNotFound
	}
	return m, err
}

func (r *SQLMessageRepo) Query(ctx context.Context, f Filter) ([]model.Message, error) {
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.To != "" {
		where = append(where, `"to" = ?`)
		args = append(args, f.To)
	}

	q := `SELECT ` + selectColumns + ` FROM sms`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update runs mutate against the current row inside a single transaction
// holding that row's write lock, then persists every mutable field at once.
// id, to, message and created_at are never written.
func (r *SQLMessageRepo) Update(ctx context.Context, id string, mutate MutateFunc) (model.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+selectColumns+` FROM sms WHERE id = ?`+r.dialect.lockClause), id)
	cur, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, ErrNotFound
	}
	if err != nil {
		return model.Message{}, err
	}

	next := cur
	if err := mutate(&next); err != nil {
		return model.Message{}, err
	}
	next.ID, next.To, next.Message, next.CreatedAt = cur.ID, cur.To, cur.Message, cur.CreatedAt
	next.LastAttemptAt = storedTime(next.LastAttemptAt)
	next.SentAt = storedTime(next.SentAt)

	if !next.Status.Valid() {
		return model.Message{}, fmt.Errorf("%w: status %q", ErrInvalidRecord, next.Status)
	}
	if next.AttemptCount < cur.AttemptCount {
		return model.Message{}, fmt.Errorf("%w: attempt_count cannot decrease", ErrInvalidRecord)
	}

	if _, err := tx.ExecContext(ctx, r.dialect.rebind(`
		UPDATE sms
		SET status = ?,
		    attempt_count = ?,
		    last_attempt_at = ?,
		    sent_at = ?,
		    fail_reason = ?
		WHERE id = ?
	`),
		string(next.Status),
		next.AttemptCount,
		nullTime(next.LastAttemptAt),
		nullTime(next.SentAt),
		nullString(next.FailReason),
		next.ID,
	); err != nil {
		return model.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Message{}, err
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(s rowScanner) (model.Message, error) {
	var (
		m           model.Message
		status      string
		lastAttempt sql.NullTime
		sentAt      sql.NullTime
		failReason  sql.NullString
	)

	if err := s.Scan(
		&m.ID,
		&m.To,
		&m.Message,
		&status,
		&m.AttemptCount,
		&lastAttempt,
		&sentAt,
		&failReason,
		&m.CreatedAt,
	); err != nil {
		return model.Message{}, err
	}

	m.Status = model.Status(status)
	m.CreatedAt = m.CreatedAt.UTC()

	if lastAttempt.Valid {
		t := lastAttempt.Time.UTC()
		m.LastAttemptAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		m.SentAt = &t
	}
	if failReason.Valid {
		s := failReason.String
		m.FailReason = &s
	}
	return m, nil
}

// storedTime matches the precision the database keeps, so the record handed
// back from Update equals what a later read returns.
func storedTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
