package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chorale/src/features/auth"
)

// CreateUserWithIdentity creates a user and its login identity in one
// transaction.
func (s *Store) CreateUserWithIdentity(ctx context.Context, user *auth.User, identity *auth.Identity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (name, is_admin, created_date) VALUES (?, ?, ?)`,
		user.Name, user.IsAdmin, formatDate(user.CreatedDate))
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO auth_identities (login_name, password_hash, hash_algorithm, user_id, created_date)
		 VALUES (?, ?, ?, ?, ?)`,
		identity.LoginName, identity.PasswordHash, identity.HashAlgorithm, userID, formatDate(identity.CreatedDate))
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	identityID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	user.ID = userID
	identity.ID = identityID
	identity.UserID = userID
	return nil
}

// CreateIdentity creates an identity with no linked user. The user is
// created lazily on first successful login.
func (s *Store) CreateIdentity(ctx context.Context, identity *auth.Identity) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_identities (login_name, password_hash, hash_algorithm, created_date)
		 VALUES (?, ?, ?, ?)`,
		identity.LoginName, identity.PasswordHash, identity.HashAlgorithm, formatDate(identity.CreatedDate))
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	identity.ID, err = res.LastInsertId()
	return err
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*auth.User, error) {
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q queryer, id int64) (*auth.User, error) {
	user := &auth.User{}
	var created string
	err := q.QueryRowContext(ctx,
		`SELECT id, name, is_admin, created_date FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Name, &user.IsAdmin, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedDate = parseDate(created)
	return user, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, is_admin, created_date FROM users ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user := &auth.User{}
		var created string
		if err := rows.Scan(&user.ID, &user.Name, &user.IsAdmin, &created); err != nil {
			return nil, err
		}
		user.CreatedDate = parseDate(created)
		users = append(users, user)
	}
	return users, rows.Err()
}

const identityColumns = `id, login_name, password_hash, hash_algorithm, failed_attempts, last_failure, COALESCE(user_id, 0), created_date`

func scanIdentity(row *sql.Row) (*auth.Identity, error) {
	identity := &auth.Identity{}
	var lastFailure, created string
	err := row.Scan(&identity.ID, &identity.LoginName, &identity.PasswordHash,
		&identity.HashAlgorithm, &identity.FailedAttempts, &lastFailure,
		&identity.UserID, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	identity.LastFailure = parseDate(lastFailure)
	identity.CreatedDate = parseDate(created)
	return identity, nil
}

// GetIdentity retrieves an identity by id.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*auth.Identity, error) {
	return scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM auth_identities WHERE id = ?`, id))
}

// GetIdentityByLogin retrieves an identity by its login name.
func (s *Store) GetIdentityByLogin(ctx context.Context, login string) (*auth.Identity, error) {
	return scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM auth_identities WHERE login_name = ?`, login))
}

// SetPassword replaces an identity's password hash.
func (s *Store) SetPassword(ctx context.Context, identityID int64, hash, algorithm string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE auth_identities SET password_hash = ?, hash_algorithm = ? WHERE id = ?`,
		hash, algorithm, identityID)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

// RecordFailedAttempt bumps the failure counter in a single statement,
// restarting the streak when the previous failure predates the window.
// Dates are stored RFC3339 UTC so string comparison orders correctly.
func (s *Store) RecordFailedAttempt(ctx context.Context, identityID int64, windowStart, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE auth_identities
		 SET failed_attempts = CASE WHEN last_failure = '' OR last_failure < ? THEN 1 ELSE failed_attempts + 1 END,
		     last_failure = ?
		 WHERE id = ?`,
		formatDate(windowStart), formatDate(now), identityID)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// resolveUserTx finds or lazily creates the user linked to the
// identity, inside the caller's transaction. The very first user to
// exist becomes an administrator.
func resolveUserTx(ctx context.Context, tx *sql.Tx, identityID int64) (*auth.User, error) {
	var userID sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM auth_identities WHERE id = ?`, identityID).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, auth.ErrInvalidIdentity
	}
	if err != nil {
		return nil, err
	}

	if userID.Valid && userID.Int64 > 0 {
		return getUser(ctx, tx, userID.Int64)
	}

	var loginName string
	if err := tx.QueryRowContext(ctx,
		`SELECT login_name FROM auth_identities WHERE id = ?`, identityID).Scan(&loginName); err != nil {
		return nil, err
	}

	var existing int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(id) FROM users`).Scan(&existing); err != nil {
		return nil, err
	}
	isAdmin := existing == 0

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (name, is_admin, created_date) VALUES (?, ?, ?)`,
		loginName, isAdmin, formatDate(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE auth_identities SET user_id = ? WHERE id = ?`, newID, identityID); err != nil {
		return nil, fmt.Errorf("failed to link identity: %w", err)
	}

	return &auth.User{ID: newID, Name: loginName, IsAdmin: isAdmin, CreatedDate: now}, nil
}

// ResolveUser returns the identity's user, creating one on first use.
func (s *Store) ResolveUser(ctx context.Context, identityID int64) (*auth.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := resolveUserTx(ctx, tx, identityID)
	if err != nil {
		return nil, err
	}
	return user, tx.Commit()
}

// CompleteLogin resolves the user and resets the throttle counters in
// one transaction.
func (s *Store) CompleteLogin(ctx context.Context, identityID int64) (*auth.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := resolveUserTx(ctx, tx, identityID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE auth_identities SET failed_attempts = 0, last_failure = '' WHERE id = ?`,
		identityID); err != nil {
		return nil, fmt.Errorf("failed to reset attempts: %w", err)
	}
	return user, tx.Commit()
}

// CreateToken persists a remember-me token.
func (s *Store) CreateToken(ctx context.Context, token *auth.Token) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (identity_id, value, expires) VALUES (?, ?, ?)`,
		token.IdentityID, token.Value, formatDate(token.Expires))
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	token.ID, err = res.LastInsertId()
	return err
}

// GetToken retrieves a token by value.
func (s *Store) GetToken(ctx context.Context, value string) (*auth.Token, error) {
	token := &auth.Token{}
	var expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, identity_id, value, expires FROM auth_tokens WHERE value = ?`, value).
		Scan(&token.ID, &token.IdentityID, &token.Value, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	token.Expires = parseDate(expires)
	return token, nil
}

// DeleteToken removes a token by value.
func (s *Store) DeleteToken(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE value = ?`, value)
	return err
}

// DeleteExpiredTokens purges tokens whose expiry has passed.
func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires < ?`, formatDate(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
