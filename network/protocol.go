package network

const (
	MsgTypeHeartbeat = 1

	// client -> server
	MsgTypeCreateRoom     = 101
	MsgTypeJoinRoom       = 102
	MsgTypeLeaveRoom      = 104
	MsgTypeGetRoomPlayers = 111
	MsgTypeGetPositions   = 112
	MsgTypeGetBalances    = 113
	MsgTypeGetOwnership   = 114
	MsgTypeGetTurn        = 115
	MsgTypeRollDice       = 201
	MsgTypeBuyTile        = 202
	MsgTypeTurnUpdate     = 203

	// server -> client
	MsgTypeRoomUpdate      = 301
	MsgTypePositionUpdate  = 302
	MsgTypeBalanceUpdate   = 303
	MsgTypeOwnershipUpdate = 304
	MsgTypeTurnChanged     = 305
	MsgTypeDiceRolled      = 306
	MsgTypeActionRejected  = 307
	MsgTypeWelcome         = 308
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:       "heartbeat",
	MsgTypeCreateRoom:      "create_room",
	MsgTypeJoinRoom:        "join_room",
	MsgTypeLeaveRoom:       "leave_room",
	MsgTypeGetRoomPlayers:  "get_room_players",
	MsgTypeGetPositions:    "get_positions",
	MsgTypeGetBalances:     "get_balances",
	MsgTypeGetOwnership:    "get_ownership",
	MsgTypeGetTurn:         "get_turn",
	MsgTypeRollDice:        "roll_dice",
	MsgTypeBuyTile:         "buy_tile",
	MsgTypeTurnUpdate:      "turn_update",
	MsgTypeRoomUpdate:      "room_update",
	MsgTypePositionUpdate:  "position_update",
	MsgTypeBalanceUpdate:   "balance_update",
	MsgTypeOwnershipUpdate: "ownership_update",
	MsgTypeTurnChanged:     "turn_update",
	MsgTypeDiceRolled:      "dice_rolled",
	MsgTypeActionRejected:  "action_rejected",
	MsgTypeWelcome:         "welcome",
}

// MsgName returns the event name of a message id, or "unknown".
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}
