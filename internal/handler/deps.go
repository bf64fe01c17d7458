package handler

import (
	"context"
	"time"

	"punkspace/internal/app/chat"
	"punkspace/internal/app/db"
	"punkspace/internal/app/storage"
	"punkspace/internal/configs"
	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/auth/revoke"
	"punkspace/internal/pkg/pow"
)

// Store is every query the REST surface runs. *db.Queries implements it.
type Store interface {
	chat.MessageStore

	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, username, passwordHash string) (*db.User, error)
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	GetUserByID(ctx context.Context, id int64) (*db.User, error)
	ListUserSummaries(ctx context.Context, ids []int64) ([]db.UserSummary, error)
	ListUsers(ctx context.Context, limit int) ([]db.UserSummary, error)
	ListAllUsers(ctx context.Context) ([]db.User, error)
	UpdateProfile(ctx context.Context, id int64, p db.ProfileUpdate) (*db.User, error)
	UpdateTopFriends(ctx context.Context, id int64, mutate db.IDListMutator) ([]int64, error)
	UpdateBlockedUsers(ctx context.Context, id int64, mutate db.IDListMutator) ([]int64, error)

	ListRooms(ctx context.Context) ([]db.Room, error)
	ListRoomMessages(ctx context.Context, roomID int64, limit int) ([]db.MessageView, error)

	ListBoardPosts(ctx context.Context) ([]db.BoardPost, error)
	CreateBoardPost(ctx context.Context, userID int64, title, content string) (int64, error)
	GetBoardPost(ctx context.Context, id int64) (*db.BoardPost, error)
	ListBoardComments(ctx context.Context, postID int64) ([]db.BoardComment, error)
	CreateBoardComment(ctx context.Context, postID, userID int64, content string) (int64, error)
}

var _ Store = (*db.Queries)(nil)

type AppDeps struct {
	Hub            *chat.Hub
	Ingestor       *chat.Ingestor
	Config         *configs.AppConfig
	StorageService storage.StorageService
	DB             Store
	Auth           *jwt.Resolver
	Revoker        revoke.Store
	PoW            *pow.PoWManager

	// Clock overrides time.Now for the daily featured user.
	Clock func() time.Time
}

func (d *AppDeps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}
