package handler

import (
	"net/http"

	"punkspace/internal/app/db"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/req"
	"punkspace/internal/pkg/resp"
)

// RoomView is a room with the number of connections currently listening to it.
type RoomView struct {
	db.Room
	Listeners int `json:"listeners"`
}

// HandleListRooms returns every chat room.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := deps.DB.ListRooms(r.Context())
		if err != nil {
			logx.Error(err, "failed to list rooms")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		views := make([]RoomView, 0, len(rooms))
		for _, room := range rooms {
			views = append(views, RoomView{Room: room, Listeners: deps.Hub.SubscriberCount(room.ID)})
		}

		resp.RespondSuccess(w, r, views)
	}
}

// HandleRoomHistory returns the latest messages of a room, oldest first.
func HandleRoomHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, customErr := req.IDParam(r, "roomID")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Ingestor.CheckRoom(r.Context(), roomID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		messages, err := deps.DB.ListRoomMessages(r.Context(), roomID, db.RoomHistoryLimit)
		if err != nil {
			logx.Error(err, "failed to load room history", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}
