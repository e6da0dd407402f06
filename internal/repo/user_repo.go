package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/noteflow/internal/model"
	"github.com/xxxsen/noteflow/internal/pkg/dbutil"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":            user.ID,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const query = `SELECT id, email, password_hash, ctime, mtime FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	const query = `SELECT id, email, password_hash, ctime, mtime FROM users WHERE id = $1`
	return r.getOne(ctx, query, userID)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var user model.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Ctime, &user.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
