package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType tags every frame exchanged over the real-time connection.
type EventType string

const (
	// Client to server.
	TypeAuthenticate EventType = "authenticate"
	TypeJoinRoom     EventType = "join_room"
	TypeLeaveRoom    EventType = "leave_room"
	TypeSendMessage  EventType = "send_message"

	// Server to client.
	TypeOnlineCountUpdate EventType = "online_count_update"
	TypeNewMessage        EventType = "new_message"
	TypeError             EventType = "error"
)

// Event is the {type, payload} envelope of every frame.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessagePayload is the inbound body of a send_message event.
// Pointers distinguish missing required fields from zero values.
type SendMessagePayload struct {
	RoomID  *int64  `json:"room_id"`
	UserID  *int64  `json:"user_id,omitempty"`
	Content *string `json:"content"`
	Type    string  `json:"type,omitempty"`
}

// MessageEvent is the payload of new_message: a persisted message enriched with its sender.
type MessageEvent struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
}

// ErrorPayload is sent to a single connection when one of its events is rejected.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var errMissingField = errors.New("missing required field")

// EncodeEvent marshals payload into a ready-to-send frame.
func EncodeEvent(t EventType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}

	return json.Marshal(Event{Type: t, Payload: raw})
}

// DecodeEvent parses an inbound frame envelope.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event type: %w", errMissingField)
	}
	return ev, nil
}

// DecodeID parses a payload that is a bare positive integer id.
func DecodeID(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive, got %d", id)
	}
	return id, nil
}

// DecodeSendMessage strictly parses a send_message payload.
func DecodeSendMessage(raw json.RawMessage) (SendMessagePayload, error) {
	var p SendMessagePayload

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&p); err != nil {
		return SendMessagePayload{}, err
	}

	switch {
	case p.RoomID == nil:
		return SendMessagePayload{}, fmt.Errorf("room_id: %w", errMissingField)
	case p.Content == nil:
		return SendMessagePayload{}, fmt.Errorf("content: %w", errMissingField)
	}

	return p, nil
}
