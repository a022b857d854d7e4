package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
)

const (
	upsertSessionQuery = `
INSERT INTO "session" (id, token, user_id, username, name, role, team_id, email, expires_at, created_at)
VALUES (:id, :token, :user_id, :username, :name, :role, :team_id, :email, :expires_at, :created_at)
ON CONFLICT (id) DO UPDATE SET
    token = EXCLUDED.token,
    user_id = EXCLUDED.user_id,
    username = EXCLUDED.username,
    name = EXCLUDED.name,
    role = EXCLUDED.role,
    team_id = EXCLUDED.team_id,
    email = EXCLUDED.email,
    expires_at = EXCLUDED.expires_at`

	getSessionQuery = `
SELECT id, token, user_id, username, name, role, team_id, email, expires_at, created_at
FROM "session" WHERE id = $1`

	deleteSessionQuery = `DELETE FROM "session" WHERE id = $1`
)

type sessionRow struct {
	ID        string      `db:"id"`
	Token     string      `db:"token"`
	UserID    string      `db:"user_id"`
	Username  string      `db:"username"`
	Name      string      `db:"name"`
	Role      string      `db:"role"`
	TeamID    string      `db:"team_id"`
	Email     null.String `db:"email"`
	ExpiresAt null.Time   `db:"expires_at"`
	CreatedAt time.Time   `db:"created_at"`
}

func newSessionRow(sess session.Session) sessionRow {
	return sessionRow{
		ID:        sess.ID,
		Token:     sess.Token,
		UserID:    sess.User.ID,
		Username:  sess.User.Username,
		Name:      sess.User.Name,
		Role:      string(sess.User.Role),
		TeamID:    sess.User.TeamID,
		Email:     null.NewString(sess.User.Email, sess.User.Email != ""),
		ExpiresAt: null.NewTime(sess.ExpiresAt.UTC(), !sess.ExpiresAt.IsZero()),
		CreatedAt: sess.CreatedAt.UTC(),
	}
}

func (row sessionRow) session() session.Session {
	sess := session.Session{
		ID:    row.ID,
		Token: row.Token,
		User: user.User{
			ID:       row.UserID,
			Username: row.Username,
			Name:     row.Name,
			Role:     user.Role(row.Role),
			TeamID:   row.TeamID,
			Email:    row.Email.String,
		},
		CreatedAt: row.CreatedAt,
	}
	if row.ExpiresAt.Valid {
		sess.ExpiresAt = row.ExpiresAt.Time
	}
	return sess
}

type sessionStore struct {
	db *sqlx.DB
}

var _ session.Store = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(db *sql.DB) session.Store {
	return &sessionStore{db: sqlx.NewDb(db, "postgres")}
}

func (store *sessionStore) Save(ctx context.Context, sess session.Session) error {
	_, err := store.db.NamedExecContext(ctx, upsertSessionQuery, newSessionRow(sess))
	return errors.Wrap(err, "upserting session")
}

func (store *sessionStore) Get(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	if err := store.db.GetContext(ctx, &row, getSessionQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "selecting session")
	}
	return row.session(), nil
}

func (store *sessionStore) Delete(ctx context.Context, id string) error {
	res, err := store.db.ExecContext(ctx, deleteSessionQuery, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}
