package orderstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrkishore97/production-scheduler-v3/internal/security"
)

type User struct {
	ID       int64
	Username string
	IsAdmin  bool
}

type Session struct {
	ID        string
	UserID    int64
	CSRFToken string
	ExpiresAt time.Time
}

// EnsureAdminUser creates the admin account or resets its password, keeping
// the admin flag set either way.
func (s *Store) EnsureAdminUser(ctx context.Context, username, password string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(username)
		DO UPDATE SET password_hash = excluded.password_hash, is_admin = 1;
	`, username, hash, time.Now().UTC().Unix())
	return err
}

// CreateCustomerUser registers a customer login that owns the given customer
// names. Names are trimmed and deduplicated case-insensitively.
func (s *Store) CreateCustomerUser(ctx context.Context, username, password string, customerNames []string) (int64, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES (?, ?, 0, ?);
	`, username, hash, time.Now().UTC().Unix())
	if err != nil {
		return 0, err
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	seen := map[string]struct{}{}
	for _, name := range customerNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_customer_names (user_id, customer_name) VALUES (?, ?);
		`, userID, name); err != nil {
			return 0, err
		}
	}
	if len(seen) == 0 {
		return 0, fmt.Errorf("customer user needs at least one customer name")
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}

// LookupUserByUsername returns the user record and its password hash.
func (s *Store) LookupUserByUsername(ctx context.Context, username string) (*User, string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin
		FROM users
		WHERE username = ?
		LIMIT 1;
	`, username)

	var user User
	var hash string
	var isAdmin int64
	if err := row.Scan(&user.ID, &user.Username, &hash, &isAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	user.IsAdmin = isAdmin == 1
	return &user, hash, nil
}

// UserCustomerNames lists the customer names owned by a user, sorted.
func (s *Store) UserCustomerNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_name FROM user_customer_names
		WHERE user_id = ?
		ORDER BY customer_name;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, id string, userID int64, csrfToken string, expiresAt time.Time) error {
	now := time.Now().UTC().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, csrf_token, expires_at, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, id, userID, csrfToken, expiresAt.UTC().Unix(), now, now)
	return err
}

// LookupSession resolves a session cookie to its session and user. Expired
// sessions are deleted on sight and reported as not found.
func (s *Store) LookupSession(ctx context.Context, id string) (*Session, *User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.csrf_token, s.expires_at, u.username, u.is_admin
		FROM sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
		LIMIT 1;
	`, id)

	var sess Session
	var user User
	var expiresUnix, isAdmin int64
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.CSRFToken, &expiresUnix, &user.Username, &isAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	sess.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = s.DeleteSession(ctx, id)
		return nil, nil, ErrNotFound
	}
	user.ID = sess.UserID
	user.IsAdmin = isAdmin == 1

	_, _ = s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = ? WHERE id = ?;`,
		time.Now().UTC().Unix(), id)

	return &sess, &user, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
	return err
}

// DeleteExpiredSessions clears out sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?;`,
		time.Now().UTC().Unix())
	return err
}
