package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cafe-seat-share/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

const userColumns = `id, vendor, unique_id, user_status, created_at, updated_at, deleted_at`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// FindOrCreate returns the user registered for (vendor, uniqueID), creating
// it on first sight.  A tombstoned user is brought back instead of
// duplicated.  The bool reports whether a new row was inserted.
func (r *UserRepo) FindOrCreate(ctx context.Context, vendor int, uniqueID string, now time.Time) (model.User, bool, error) {
	u, err := r.getByIdentity(ctx, vendor, uniqueID)
	switch {
	case err == nil:
		if u.DeletedAt != nil {
			if err := r.restore(ctx, u.ID, now); err != nil {
				return model.User{}, false, err
			}
			u.DeletedAt = nil
			u.UpdatedAt = now
		}
		return u, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return model.User{}, false, err
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (vendor, unique_id, user_status, created_at, updated_at) VALUES (?,?,?,?,?)",
		vendor, uniqueID, model.UserStatusActive, now.UTC(), now.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			// lost the race against a concurrent first login
			u, err := r.getByIdentity(ctx, vendor, uniqueID)
			return u, false, err
		}
		return model.User{}, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, false, err
	}
	return model.User{
		ID:         uint64(id),
		Vendor:     vendor,
		UniqueID:   uniqueID,
		UserStatus: model.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, true, nil
}

// Delete removes a user.  A soft delete sets deleted_at; a hard delete
// drops the row.  ErrUserNotFound is returned when nothing matched.
func (r *UserRepo) Delete(ctx context.Context, id uint64, hard bool, now time.Time) error {
	var (
		res sql.Result
		err error
	)
	if hard {
		res, err = r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	} else {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET deleted_at=?, updated_at=? WHERE id=? AND deleted_at IS NULL",
			now.UTC(), now.UTC(), id)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// getByIdentity fetches a user by provider identity, tombstoned or not.
func (r *UserRepo) getByIdentity(ctx context.Context, vendor int, uniqueID string) (model.User, error) {
	var (
		u       model.User
		deleted sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE vendor=? AND unique_id=? LIMIT 1",
		vendor, uniqueID).Scan(&u.ID, &u.Vendor, &u.UniqueID, &u.UserStatus, &u.CreatedAt, &u.UpdatedAt, &deleted)
	if err != nil {
		return model.User{}, err
	}
	if deleted.Valid {
		t := deleted.Time
		u.DeletedAt = &t
	}
	return u, nil
}

func (r *UserRepo) restore(ctx context.Context, id uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET deleted_at=NULL, updated_at=? WHERE id=?", now.UTC(), id)
	return err
}
