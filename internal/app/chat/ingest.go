package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"punkspace/internal/app/db"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
)

const (
	// MaxContentBytes is the maximum size of a chat message body.
	MaxContentBytes = 5000

	KindText  = "text"
	KindImage = "image"
)

// MessageStore is the persistence the ingest pipeline needs.
type MessageStore interface {
	RoomExists(ctx context.Context, id int64) (bool, error)
	CreateMessage(ctx context.Context, roomID, userID int64, content, kind string) (*db.Message, error)
	GetUserSummary(ctx context.Context, id int64) (*db.UserSummary, error)
}

// RoomBroadcaster fans a frame out to a room's subscribers.
type RoomBroadcaster interface {
	BroadcastRoom(roomID int64, data []byte) error
}

// ReferenceChecker recognizes references produced by the upload storage.
type ReferenceChecker interface {
	Owns(ref string) bool
}

// SubmitRequest is one chat message as received from a client.
type SubmitRequest struct {
	RoomID  int64
	UserID  int64
	Content string
	Kind    string
}

// Ingestor validates, persists and announces chat messages.
type Ingestor struct {
	store  MessageStore
	out    RoomBroadcaster
	refs   ReferenceChecker
	logger zerolog.Logger

	// publishMu spans persist through broadcast so live order matches message ids.
	publishMu sync.Mutex
}

func NewIngestor(store MessageStore, out RoomBroadcaster, refs ReferenceChecker) *Ingestor {
	return &Ingestor{
		store:  store,
		out:    out,
		refs:   refs,
		logger: logx.Component("ingest"),
	}
}

// CheckRoom returns ErrRoomNotFound unless roomID names an existing room.
func (i *Ingestor) CheckRoom(ctx context.Context, roomID int64) *errs.CustomError {
	exists, err := i.store.RoomExists(ctx, roomID)
	if err != nil {
		i.logger.Error().Err(err).Int64("room_id", roomID).Msg("Room lookup failed.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}
	if !exists {
		return errs.NewError(errs.ErrRoomNotFound)
	}
	return nil
}

// Validate applies every check that does not touch the store and returns the effective kind.
func (i *Ingestor) Validate(req SubmitRequest) (string, *errs.CustomError) {
	kind := req.Kind
	if kind == "" {
		kind = KindText
	}
	if kind != KindText && kind != KindImage {
		return "", errs.NewError(errs.ErrMessageTypeInvalid)
	}

	if strings.TrimSpace(req.Content) == "" {
		return "", errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(req.Content) > MaxContentBytes {
		return "", errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes)
	}

	if kind == KindImage && (i.refs == nil || !i.refs.Owns(req.Content)) {
		return "", errs.NewError(errs.ErrImageReferenceInvalid)
	}

	return kind, nil
}

// Submit validates req, persists it and broadcasts the enriched message to the room.
// Nothing is broadcast unless the message was stored and its sender resolved.
func (i *Ingestor) Submit(ctx context.Context, req SubmitRequest) (*MessageEvent, *errs.CustomError) {
	kind, cErr := i.Validate(req)
	if cErr != nil {
		return nil, cErr
	}

	if cErr := i.CheckRoom(ctx, req.RoomID); cErr != nil {
		return nil, cErr
	}

	i.publishMu.Lock()
	defer i.publishMu.Unlock()

	msg, err := i.store.CreateMessage(ctx, req.RoomID, req.UserID, req.Content, kind)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			i.logger.Error().Err(err).Int64("user_id", req.UserID).Int64("room_id", req.RoomID).
				Msg("Integrity fault: message references a missing sender or room.")
			return nil, errs.NewError(errs.ErrSenderNotFound)
		}
		i.logger.Error().Err(err).Int64("room_id", req.RoomID).Msg("Failed to persist message.")
		return nil, errs.NewError(errs.ErrStoreUnavailable)
	}

	sender, err := i.store.GetUserSummary(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			i.logger.Error().Int64("user_id", req.UserID).Int64("message_id", msg.ID).
				Msg("Integrity fault: stored message has no resolvable sender, not broadcasting.")
			return nil, errs.NewError(errs.ErrSenderNotFound)
		}
		i.logger.Error().Err(err).Int64("message_id", msg.ID).Msg("Failed to resolve message sender.")
		return nil, errs.NewError(errs.ErrStoreUnavailable)
	}

	event := &MessageEvent{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		Type:      msg.Type,
		Timestamp: msg.CreatedAt,
		Username:  sender.Username,
		AvatarURL: sender.AvatarURL,
	}

	data, err := EncodeEvent(TypeNewMessage, event)
	if err != nil {
		i.logger.Error().Err(err).Int64("message_id", msg.ID).Msg("Failed to encode new message.")
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	if err := i.out.BroadcastRoom(msg.RoomID, data); err != nil {
		// The message is stored; clients will see it in the room history.
		i.logger.Warn().Err(err).Int64("message_id", msg.ID).Msg("Message stored but not broadcast.")
	}

	return event, nil
}
