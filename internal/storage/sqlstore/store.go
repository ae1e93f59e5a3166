// Package sqlstore is a storage.Store on top of database/sql, usable with the
// embedded SQLite driver (modernc.org/sqlite) or PostgreSQL (pgx). Schema
// changes are goose migrations embedded per dialect; Rotate runs in a single
// transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/dbx"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storage/sqlstore/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// Store is a storage.Store backed by a SQL database.
type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
}

func driverName(d dbx.Dialect) string {
	if d == dbx.DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Open connects to dsn, applies pending migrations and returns the store.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(driverName(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", common.ErrIO, err)
	}
	if dialect == dbx.DialectSQLite {
		// SQLite serializes writers; one connection also keeps
		// in-memory databases coherent.
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate database: %w", common.ErrIO, err)
	}

	return New(db, dialect), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect dbx.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// RunMigrations applies the embedded goose migrations for dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	gooseDialect := "sqlite3"
	if dialect == dbx.DialectPostgres {
		gooseDialect = "pgx"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, string(dialect))
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

func ioErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrIO, op, err)
}

func isKnown(err error) bool {
	for _, target := range []error{common.ErrIO, common.ErrNotFound, common.ErrConflict, common.ErrValidation, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	err := dbx.WithTx(ctx, s.db, nil, fn)
	if err != nil && !isKnown(err) {
		return ioErr("transaction", err)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func (s *Store) GetUser(ctx context.Context, username string) (*models.AuthRecord, error) {
	var (
		rec       models.AuthRecord
		createdAt string
		lastLogin sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT username, password_hash, kdf_salt, kdf_iterations, created_at, last_login FROM users WHERE username = ?`),
		username,
	).Scan(&rec.Username, &rec.PasswordHash, &rec.KDFSalt, &rec.KDFIterations, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, common.ErrNotFound)
	}
	if err != nil {
		return nil, ioErr("get user", err)
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, ioErr("parse created_at", err)
	}
	if lastLogin.Valid {
		t, err := parseTime(lastLogin.String)
		if err != nil {
			return nil, ioErr("parse last_login", err)
		}
		rec.LastLogin = &t
	}
	return &rec, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, ioErr("count users", err)
	}
	return n, nil
}

func (s *Store) CreateUser(ctx context.Context, rec *models.AuthRecord) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var n int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM users WHERE username = ?`), rec.Username).Scan(&n); err != nil {
			return ioErr("check user", err)
		}
		if n > 0 {
			return fmt.Errorf("user %q: %w", rec.Username, common.ErrConflict)
		}

		var lastLogin sql.NullString
		if rec.LastLogin != nil {
			lastLogin = sql.NullString{String: formatTime(*rec.LastLogin), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO users (username, password_hash, kdf_salt, kdf_iterations, created_at, last_login) VALUES (?, ?, ?, ?, ?, ?)`),
			rec.Username, rec.PasswordHash, rec.KDFSalt, rec.KDFIterations, formatTime(rec.CreatedAt), lastLogin,
		)
		if err != nil {
			return ioErr("insert user", err)
		}
		return nil
	})
}

func (s *Store) TouchLogin(ctx context.Context, username string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET last_login = ? WHERE username = ?`), formatTime(at), username)
	if err != nil {
		return ioErr("update last_login", err)
	}
	return expectOneRow(res, fmt.Sprintf("user %q", username))
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return ioErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}

const entryColumns = `owner, domain, ciphertext, nonce, username, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.CredentialEntry, error) {
	var (
		e                    models.CredentialEntry
		username, notes      sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.Owner, &e.Domain, &e.Ciphertext, &e.Nonce, &username, &notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	e.Username = stringPtr(username)
	e.Notes = stringPtr(notes)
	return &e, nil
}

func (s *Store) ListEntries(ctx context.Context, owner string) ([]*models.CredentialEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+entryColumns+` FROM entries WHERE owner = ? ORDER BY domain`), owner)
	if err != nil {
		return nil, ioErr("select entries", err)
	}
	defer rows.Close()

	result := make([]*models.CredentialEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, ioErr("scan entry", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate entries", err)
	}
	return result, nil
}

func (s *Store) GetEntry(ctx context.Context, owner, domain string) (*models.CredentialEntry, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+entryColumns+` FROM entries WHERE owner = ? AND domain = ?`), owner, domain)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %q: %w", domain, common.ErrNotFound)
	}
	if err != nil {
		return nil, ioErr("get entry", err)
	}
	return e, nil
}

func (s *Store) insertEntry(ctx context.Context, db dbx.DBTX, e *models.CredentialEntry) error {
	_, err := db.ExecContext(ctx,
		s.q(`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.Owner, e.Domain, e.Ciphertext, e.Nonce, nullString(e.Username), nullString(e.Notes),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return ioErr("insert entry", err)
	}
	return nil
}

func (s *Store) InsertEntry(ctx context.Context, e *models.CredentialEntry) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var n int
		err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM entries WHERE owner = ? AND domain = ?`), e.Owner, e.Domain).Scan(&n)
		if err != nil {
			return ioErr("check entry", err)
		}
		if n > 0 {
			return fmt.Errorf("entry %q: %w", e.Domain, common.ErrConflict)
		}
		return s.insertEntry(ctx, tx, e)
	})
}

func (s *Store) UpdateEntry(ctx context.Context, e *models.CredentialEntry) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE entries SET ciphertext = ?, nonce = ?, username = ?, notes = ?, created_at = ?, updated_at = ? WHERE owner = ? AND domain = ?`),
		e.Ciphertext, e.Nonce, nullString(e.Username), nullString(e.Notes),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt), e.Owner, e.Domain,
	)
	if err != nil {
		return ioErr("update entry", err)
	}
	return expectOneRow(res, fmt.Sprintf("entry %q", e.Domain))
}

func (s *Store) DeleteEntry(ctx context.Context, owner, domain string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM entries WHERE owner = ? AND domain = ?`), owner, domain)
	if err != nil {
		return ioErr("delete entry", err)
	}
	return expectOneRow(res, fmt.Sprintf("entry %q", domain))
}

// Rotate replaces the auth record and all entries of rec.Username inside one
// transaction; any failure rolls the whole change back.
func (s *Store) Rotate(ctx context.Context, rec *models.AuthRecord, entries []*models.CredentialEntry) error {
	for _, e := range entries {
		if e.Owner != rec.Username {
			return fmt.Errorf("%w: entry %q belongs to %q, not %q", common.ErrValidation, e.Domain, e.Owner, rec.Username)
		}
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			s.q(`UPDATE users SET password_hash = ?, kdf_salt = ?, kdf_iterations = ? WHERE username = ?`),
			rec.PasswordHash, rec.KDFSalt, rec.KDFIterations, rec.Username,
		)
		if err != nil {
			return ioErr("update user", err)
		}
		if err := expectOneRow(res, fmt.Sprintf("user %q", rec.Username)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM entries WHERE owner = ?`), rec.Username); err != nil {
			return ioErr("clear entries", err)
		}

		for _, e := range entries {
			if err := s.insertEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
