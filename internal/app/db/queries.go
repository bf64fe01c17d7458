package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultUserListLimit is the page size of the public user directory.
const DefaultUserListLimit = 50

// RoomHistoryLimit is the number of most recent messages returned by ListRoomMessages.
const RoomHistoryLimit = 100

// Queries runs every statement against a pgx pool.
type Queries struct {
	pool *pgxpool.Pool
}

func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// Ping checks that the database answers.
func (q *Queries) Ping(ctx context.Context) error {
	return q.pool.Ping(ctx)
}

const userColumns = `id, username, password_hash, avatar_url, bio, profile_css, profile_html,
	media_url, top_friends, blocked_users, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarURL, &u.Bio, &u.ProfileCSS,
		&u.ProfileHTML, &u.MediaURL, &u.TopFriends, &u.BlockedUsers, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func collectSummaries(rows pgx.Rows) ([]UserSummary, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserSummary, error) {
		var s UserSummary
		err := row.Scan(&s.ID, &s.Username, &s.AvatarURL)
		return s, err
	})
}

// CreateUser inserts a new account. A taken username surfaces as a unique violation.
func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		username, passwordHash)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(q.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(q.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserSummary resolves the public card of one user.
func (q *Queries) GetUserSummary(ctx context.Context, id int64) (*UserSummary, error) {
	var s UserSummary
	err := q.pool.QueryRow(ctx,
		`SELECT id, username, avatar_url FROM users WHERE id = $1`, id).
		Scan(&s.ID, &s.Username, &s.AvatarURL)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ListUserSummaries returns the cards of the given ids ordered by id. Unknown ids are skipped.
func (q *Queries) ListUserSummaries(ctx context.Context, ids []int64) ([]UserSummary, error) {
	if len(ids) == 0 {
		return []UserSummary{}, nil
	}

	rows, err := q.pool.Query(ctx,
		`SELECT id, username, avatar_url FROM users WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list user summaries: %w", err)
	}
	return collectSummaries(rows)
}

// ListUsers returns up to limit user cards ordered by id.
func (q *Queries) ListUsers(ctx context.Context, limit int) ([]UserSummary, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, username, avatar_url FROM users ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectSummaries(rows)
}

// ListAllUsers returns every account ordered by id, used by the featured-user pick.
func (q *Queries) ListAllUsers(ctx context.Context) ([]User, error) {
	rows, err := q.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		u, err := scanUser(row)
		if err != nil {
			return User{}, err
		}
		return *u, nil
	})
}

// UpdateProfile overwrites the editable profile fields of a user.
func (q *Queries) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (*User, error) {
	row := q.pool.QueryRow(ctx,
		`UPDATE users
		    SET avatar_url = $2, bio = $3, profile_css = $4, profile_html = $5, media_url = $6
		  WHERE id = $1
		RETURNING `+userColumns,
		id, p.AvatarURL, p.Bio, p.ProfileCSS, p.ProfileHTML, p.MediaURL)

	return scanUser(row)
}

// IDListMutator computes a new id list from the current one.
type IDListMutator func(current []int64) ([]int64, error)

// UpdateTopFriends edits a user's top-friend list in a row-locked read-modify-write transaction.
func (q *Queries) UpdateTopFriends(ctx context.Context, id int64, mutate IDListMutator) ([]int64, error) {
	return q.updateIDList(ctx, id, "top_friends", mutate)
}

// UpdateBlockedUsers edits a user's block list in a row-locked read-modify-write transaction.
func (q *Queries) UpdateBlockedUsers(ctx context.Context, id int64, mutate IDListMutator) ([]int64, error) {
	return q.updateIDList(ctx, id, "blocked_users", mutate)
}

// column is one of the two fixed array columns, never user input.
func (q *Queries) updateIDList(ctx context.Context, id int64, column string, mutate IDListMutator) ([]int64, error) {
	var updated []int64

	err := pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		var current []int64
		err := tx.QueryRow(ctx,
			`SELECT `+column+` FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			return notFound(err)
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET `+column+` = $2 WHERE id = $1`, id, next); err != nil {
			return fmt.Errorf("update %s: %w", column, err)
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (q *Queries) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := q.pool.Query(ctx, `SELECT id, name, description FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Room])
}

func (q *Queries) RoomExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check room: %w", err)
	}
	return exists, nil
}

// CreateMessage persists a chat line and returns it with its server-assigned id and timestamp.
func (q *Queries) CreateMessage(ctx context.Context, roomID, userID int64, content, kind string) (*Message, error) {
	m := Message{RoomID: roomID, UserID: userID, Content: content, Type: kind}

	err := q.pool.QueryRow(ctx,
		`INSERT INTO messages (room_id, user_id, content, type) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		roomID, userID, content, kind).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &m, nil
}

// ListRoomMessages returns the latest limit messages of a room in ascending id order.
func (q *Queries) ListRoomMessages(ctx context.Context, roomID int64, limit int) ([]MessageView, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, room_id, user_id, content, type, created_at, username, avatar_url FROM (
			SELECT m.id, m.room_id, m.user_id, m.content, m.type, m.created_at, u.username, u.avatar_url
			  FROM messages m
			  JOIN users u ON u.id = m.user_id
			 WHERE m.room_id = $1
			 ORDER BY m.id DESC
			 LIMIT $2
		) recent ORDER BY id ASC`,
		roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list room messages: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MessageView, error) {
		var v MessageView
		err := row.Scan(&v.ID, &v.RoomID, &v.UserID, &v.Content, &v.Type, &v.CreatedAt, &v.Username, &v.AvatarURL)
		return v, err
	})
}
