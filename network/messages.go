package network

import (
	"encoding/json"
	"strings"
)

// RoomRequest is the payload of create_room and join_room.
type RoomRequest struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

// RollRequest carries a client roll. Rolled and PlayerID may be omitted when
// the server rolls the dice itself.
type RollRequest struct {
	RoomID   string `json:"roomId"`
	Rolled   int    `json:"rolled,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

type BuyRequest struct {
	RoomID    string `json:"roomId"`
	TileIndex int    `json:"tileIndex"`
	BuyerID   string `json:"buyerId,omitempty"`
}

type TurnRequest struct {
	RoomID string `json:"roomId"`
	NextID string `json:"nextId,omitempty"`
}

type ActionRejected struct {
	Action string `json:"action"`
	RoomID string `json:"roomId,omitempty"`
	Reason string `json:"reason"`
}

type Welcome struct {
	ID string `json:"id"`
}

// DecodeRoomID reads the payload of a get_* query: a JSON string, or the bare
// room code for clients that send it unquoted.
func DecodeRoomID(data []byte) string {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id
	}
	var req LeaveRequest
	if err := json.Unmarshal(data, &req); err == nil && req.RoomID != "" {
		return req.RoomID
	}
	return strings.TrimSpace(string(data))
}
