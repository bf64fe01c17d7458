package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListBoardPosts returns every post, newest first, with its comment count.
func (q *Queries) ListBoardPosts(ctx context.Context) ([]BoardPost, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT p.id, p.user_id, p.title, p.content, p.created_at, u.username, u.avatar_url,
		        (SELECT COUNT(*) FROM board_comments c WHERE c.post_id = p.id)
		   FROM board_posts p
		   JOIN users u ON u.id = p.user_id
		  ORDER BY p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list board posts: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[BoardPost])
}

func (q *Queries) CreateBoardPost(ctx context.Context, userID int64, title, content string) (int64, error) {
	var id int64
	err := q.pool.QueryRow(ctx,
		`INSERT INTO board_posts (user_id, title, content) VALUES ($1, $2, $3) RETURNING id`,
		userID, title, content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create board post: %w", err)
	}
	return id, nil
}

func (q *Queries) GetBoardPost(ctx context.Context, id int64) (*BoardPost, error) {
	var p BoardPost
	err := q.pool.QueryRow(ctx,
		`SELECT p.id, p.user_id, p.title, p.content, p.created_at, u.username, u.avatar_url,
		        (SELECT COUNT(*) FROM board_comments c WHERE c.post_id = p.id)
		   FROM board_posts p
		   JOIN users u ON u.id = p.user_id
		  WHERE p.id = $1`, id).
		Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt, &p.Username, &p.AvatarURL, &p.CommentCount)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListBoardComments returns the comments of a post in ascending order.
func (q *Queries) ListBoardComments(ctx context.Context, postID int64) ([]BoardComment, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.username, u.avatar_url
		   FROM board_comments c
		   JOIN users u ON u.id = c.user_id
		  WHERE c.post_id = $1
		  ORDER BY c.id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list board comments: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[BoardComment])
}

// CreateBoardComment adds a comment. A missing post surfaces as a foreign key violation.
func (q *Queries) CreateBoardComment(ctx context.Context, postID, userID int64, content string) (int64, error) {
	var id int64
	err := q.pool.QueryRow(ctx,
		`INSERT INTO board_comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
		postID, userID, content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create board comment: %w", err)
	}
	return id, nil
}
