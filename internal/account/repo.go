package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the persistence surface the service depends on.
type Repository interface {
	Insert(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	ByIDNumber(ctx context.Context, idNumber string) (Account, error)
	List(ctx context.Context, role string) ([]Account, error)
	Search(ctx context.Context, role, query string) ([]Account, error)
	Update(ctx context.Context, acct Account) (Account, error)
	Delete(ctx context.Context, id string) error
}

// PGRepository persists accounts in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const acctColumns = `id, id_number, full_name, password_hash, role, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.IDNumber, &a.FullName, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Insert writes a new account.
func (r *PGRepository) Insert(ctx context.Context, acct Account) (Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, id_number, full_name, password_hash, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, acct.ID, acct.IDNumber, acct.FullName, acct.PasswordHash, acct.Role)
	if err := row.Scan(&acct.CreatedAt, &acct.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateID
		}
		return Account{}, err
	}
	return acct, nil
}

// Get returns an account by primary id.
func (r *PGRepository) Get(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+acctColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

// ByIDNumber returns an account by its institution ID number.
func (r *PGRepository) ByIDNumber(ctx context.Context, idNumber string) (Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+acctColumns+` FROM accounts WHERE id_number = $1`, idNumber)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

// List returns accounts, optionally filtered by role.
func (r *PGRepository) List(ctx context.Context, role string) ([]Account, error) {
	query := `SELECT ` + acctColumns + ` FROM accounts`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY id_number`
	return r.queryAccounts(ctx, query, args...)
}

// Search matches full name or ID number substrings, case-insensitively.
func (r *PGRepository) Search(ctx context.Context, role, query string) ([]Account, error) {
	q := `SELECT ` + acctColumns + ` FROM accounts
		WHERE (full_name ILIKE '%' || $1 || '%' OR id_number ILIKE '%' || $1 || '%')`
	args := []any{query}
	if role != "" {
		q += ` AND role = $2`
		args = append(args, role)
	}
	q += ` ORDER BY full_name`
	return r.queryAccounts(ctx, q, args...)
}

// Update rewrites id_number and full_name.
func (r *PGRepository) Update(ctx context.Context, acct Account) (Account, error) {
	acct.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET id_number = $2, full_name = $3, updated_at = $4 WHERE id = $1
	`, acct.ID, acct.IDNumber, acct.FullName, acct.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateID
		}
		return Account{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Account{}, ErrNotFound
	}
	return r.Get(ctx, acct.ID)
}

// Delete removes an account.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
