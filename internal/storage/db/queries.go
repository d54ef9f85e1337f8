package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Queries wraps a database handle with the statements used by the storage
// layer. The schema mirrors the classic users/authorities split: one row per
// user, one row per granted authority.
type Queries struct {
	db *sql.DB
}

// New creates a Queries over the given handle.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const getUserSQL = `
select id, name, password_hash, enabled from users where id = ?
`

// GetUser returns the user with the given ID, or [sql.ErrNoRows].
func (q *Queries) GetUser(ctx context.Context, userID uint64) (User, error) {
	user, err := scanUser(q.db.QueryRowContext(ctx, getUserSQL, int64(userID)))
	if err != nil {
		return user, err
	}
	user.Authorities, err = q.getAuthorities(ctx, user.ID)
	return user, err
}

const getUserByNameSQL = `
select id, name, password_hash, enabled from users where name = ?
`

// GetUserByName returns the user with the given name, or [sql.ErrNoRows].
func (q *Queries) GetUserByName(ctx context.Context, name string) (User, error) {
	user, err := scanUser(q.db.QueryRowContext(ctx, getUserByNameSQL, name))
	if err != nil {
		return user, err
	}
	user.Authorities, err = q.getAuthorities(ctx, user.ID)
	return user, err
}

const getUsersSQL = `
select id, name, password_hash, enabled from users where name > ? order by name limit ?
`

// GetUsers returns up to limit users ordered by name, starting after
// afterName. Authorities are resolved per user.
func (q *Queries) GetUsers(ctx context.Context, afterName string, limit int64) (users []User, err error) {
	rows, err := q.db.QueryContext(ctx, getUsersSQL, afterName, limit)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Authorities, err = q.getAuthorities(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

const getAuthoritiesSQL = `
select authority from authorities where user_id = ? order by authority
`

func (q *Queries) getAuthorities(ctx context.Context, userID uint64) (authorities []string, err error) {
	rows, err := q.db.QueryContext(ctx, getAuthoritiesSQL, int64(userID))
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	for rows.Next() {
		var authority string
		if err := rows.Scan(&authority); err != nil {
			return nil, err
		}
		authorities = append(authorities, authority)
	}
	return authorities, rows.Err()
}

const upsertUserSQL = `
insert into users (id, name, password_hash, enabled) values (?, ?, ?, ?)
on conflict (id) do update set
	name = excluded.name,
	password_hash = excluded.password_hash,
	enabled = excluded.enabled
`

const deleteAuthoritiesSQL = `
delete from authorities where user_id = ?
`

const insertAuthoritySQL = `
insert into authorities (user_id, authority) values (?, ?)
`

// UpsertUser writes the user row and replaces its authority set in a single
// transaction.
func (q *Queries) UpsertUser(ctx context.Context, user User) (err error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, upsertUserSQL,
		int64(user.ID), user.Name, user.PasswordHash, user.Enabled,
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, deleteAuthoritiesSQL, int64(user.ID)); err != nil {
		return err
	}
	for _, authority := range user.Authorities {
		if _, err = tx.ExecContext(ctx, insertAuthoritySQL, int64(user.ID), authority); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const deleteUserSQL = `
delete from users where id = ?
`

// DeleteUser removes the user row; authorities cascade.
func (q *Queries) DeleteUser(ctx context.Context, userID uint64) error {
	_, err := q.db.ExecContext(ctx, deleteUserSQL, int64(userID))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var user User
	var id int64
	err := row.Scan(&id, &user.Name, &user.PasswordHash, &user.Enabled)
	user.ID = uint64(id) //nolint:gosec // round-trips the snowflake ID
	return user, err
}
