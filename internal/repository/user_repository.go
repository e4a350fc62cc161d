package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/fieldops/internal/model"
)

// UserFilter narrows ListUsers.  Zero values mean "no filter".
type UserFilter struct {
	Role       model.Role
	Department string
	Active     *bool
	Search     string
}

type UserRepo struct{ DB DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, email, full_name, role, department, is_active, password_hash, creation_time"

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Department, &u.IsActive, &u.PasswordHash, &u.CreationTime)
	return u, err
}

// Create inserts user and returns its ID.  Email is stored lower-cased.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, full_name, role, department, is_active, password_hash, creation_time) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.FullName, u.Role, u.Department, u.IsActive, u.PasswordHash, u.CreationTime)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// Exists reports whether the user id resolves.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.DB, "users", id)
}

// Update writes every mutable column of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, role=?, department=?, is_active=?, password_hash=? WHERE id=?",
		u.FullName, u.Role, u.Department, u.IsActive, u.PasswordHash, u.ID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
}

// List returns users ordered by full name.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	var w where
	if f.Role != "" {
		w.eq("role", f.Role)
	}
	if f.Department != "" {
		w.eq("department", f.Department)
	}
	if f.Active != nil {
		w.eq("is_active", *f.Active)
	}
	w.search(f.Search, "full_name", "email")
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userCols+" FROM users"+w.String()+" ORDER BY full_name, id", w.args...)
	return collect(rows, err, scanUser)
}

// ActiveIDs returns the ids of all active users in id order.
func (r *UserRepo) ActiveIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id FROM users WHERE is_active = ? ORDER BY id", true)
	return collect(rows, err, func(s scanner) (uint64, error) {
		var id uint64
		return id, s.Scan(&id)
	})
}

// ExistingIDs returns the subset of ids that resolve to a user row.
func (r *UserRepo) ExistingIDs(ctx context.Context, ids []uint64) (map[uint64]bool, error) {
	names, err := r.NamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]bool, len(names))
	for id := range names {
		out[id] = true
	}
	return out, nil
}

// NamesByID resolves user ids to full names in one query.
func (r *UserRepo) NamesByID(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	return lookupNames(ctx, r.DB, "users", "full_name", ids)
}

// WithTx returns a copy of the repository bound to tx.
func (r *UserRepo) WithTx(tx *sql.Tx) *UserRepo { return &UserRepo{DB: tx} }
