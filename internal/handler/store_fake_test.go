package handler

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"punkspace/internal/app/db"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu       sync.Mutex
	users    []*db.User
	rooms    []db.Room
	messages []db.Message
	posts    []db.BoardPost
	comments []db.BoardComment
}

func newMemStore() *memStore {
	return &memStore{
		rooms: []db.Room{
			{ID: 1, Name: "General", Description: "The main lobby for everyone."},
			{ID: 2, Name: "Music", Description: "Share your favorite tunes and bands."},
			{ID: 3, Name: "Art", Description: "Show off your creations."},
			{ID: 4, Name: "Anarchy", Description: "No rules, just chaos."},
		},
	}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) userLocked(id int64) *db.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *memStore) CreateUser(_ context.Context, username, passwordHash string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}

	u := &db.User{
		ID:           int64(len(s.users) + 1),
		Username:     username,
		PasswordHash: passwordHash,
		TopFriends:   []int64{},
		BlockedUsers: []int64{},
		CreatedAt:    time.Now(),
	}
	s.users = append(s.users, u)

	clone := *u
	return &clone, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userLocked(id)
	if u == nil {
		return nil, db.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *memStore) GetUserSummary(_ context.Context, id int64) (*db.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userLocked(id)
	if u == nil {
		return nil, db.ErrNotFound
	}
	return &db.UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}, nil
}

func (s *memStore) ListUserSummaries(_ context.Context, ids []int64) ([]db.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []db.UserSummary{}
	for _, u := range s.users {
		if slices.Contains(ids, u.ID) {
			out = append(out, db.UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL})
		}
	}
	return out, nil
}

func (s *memStore) ListUsers(_ context.Context, limit int) ([]db.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []db.UserSummary{}
	for _, u := range s.users {
		if len(out) == limit {
			break
		}
		out = append(out, db.UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL})
	}
	return out, nil
}

func (s *memStore) ListAllUsers(context.Context) ([]db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memStore) UpdateProfile(_ context.Context, id int64, p db.ProfileUpdate) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userLocked(id)
	if u == nil {
		return nil, db.ErrNotFound
	}
	u.AvatarURL, u.Bio, u.ProfileCSS, u.ProfileHTML, u.MediaURL = p.AvatarURL, p.Bio, p.ProfileCSS, p.ProfileHTML, p.MediaURL

	clone := *u
	return &clone, nil
}

func (s *memStore) UpdateTopFriends(_ context.Context, id int64, mutate db.IDListMutator) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userLocked(id)
	if u == nil {
		return nil, db.ErrNotFound
	}
	next, err := mutate(u.TopFriends)
	if err != nil {
		return nil, err
	}
	u.TopFriends = next
	return next, nil
}

func (s *memStore) UpdateBlockedUsers(_ context.Context, id int64, mutate db.IDListMutator) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userLocked(id)
	if u == nil {
		return nil, db.ErrNotFound
	}
	next, err := mutate(u.BlockedUsers)
	if err != nil {
		return nil, err
	}
	u.BlockedUsers = next
	return next, nil
}

func (s *memStore) ListRooms(context.Context) ([]db.Room, error) {
	return slices.Clone(s.rooms), nil
}

func (s *memStore) RoomExists(_ context.Context, id int64) (bool, error) {
	for _, r := range s.rooms {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateMessage(_ context.Context, roomID, userID int64, content, kind string) (*db.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userLocked(userID) == nil {
		return nil, &pgconn.PgError{Code: "23503"}
	}

	m := db.Message{
		ID:        int64(len(s.messages) + 1),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		Type:      kind,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *memStore) ListRoomMessages(_ context.Context, roomID int64, limit int) ([]db.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []db.MessageView
	for _, m := range s.messages {
		if m.RoomID != roomID {
			continue
		}
		u := s.userLocked(m.UserID)
		out = append(out, db.MessageView{Message: m, Username: u.Username, AvatarURL: u.AvatarURL})
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) postViewLocked(p db.BoardPost) db.BoardPost {
	u := s.userLocked(p.UserID)
	p.Username, p.AvatarURL = u.Username, u.AvatarURL
	p.CommentCount = 0
	for _, c := range s.comments {
		if c.PostID == p.ID {
			p.CommentCount++
		}
	}
	return p
}

func (s *memStore) ListBoardPosts(context.Context) ([]db.BoardPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []db.BoardPost{}
	for i := len(s.posts) - 1; i >= 0; i-- {
		out = append(out, s.postViewLocked(s.posts[i]))
	}
	return out, nil
}

func (s *memStore) CreateBoardPost(_ context.Context, userID int64, title, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int64(len(s.posts) + 1)
	s.posts = append(s.posts, db.BoardPost{ID: id, UserID: userID, Title: title, Content: content, CreatedAt: time.Now()})
	return id, nil
}

func (s *memStore) GetBoardPost(_ context.Context, id int64) (*db.BoardPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.ID == id {
			view := s.postViewLocked(p)
			return &view, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) ListBoardComments(_ context.Context, postID int64) ([]db.BoardComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []db.BoardComment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			u := s.userLocked(c.UserID)
			c.Username, c.AvatarURL = u.Username, u.AvatarURL
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) CreateBoardComment(_ context.Context, postID, userID int64, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if postID > int64(len(s.posts)) {
		return 0, &pgconn.PgError{Code: "23503"}
	}

	id := int64(len(s.comments) + 1)
	s.comments = append(s.comments, db.BoardComment{ID: id, PostID: postID, UserID: userID, Content: content, CreatedAt: time.Now()})
	return id, nil
}
