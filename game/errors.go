package game

import "errors"

var (
	ErrNotMember         = errors.New("player is not a member of the room")
	ErrInvalidRoll       = errors.New("roll outside the two-dice range")
	ErrNotYourTurn       = errors.New("player does not hold the turn")
	ErrAlreadyRolled     = errors.New("dice already rolled this turn")
	ErrSenderMismatch    = errors.New("request made on behalf of another player")
	ErrNotPurchasable    = errors.New("tile is not purchasable")
	ErrAlreadyOwned      = errors.New("tile is already owned")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotOnTile         = errors.New("buyer is not standing on the tile")
	ErrInvalidSuccessor  = errors.New("next player does not follow rotation order")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrNotMember, "not_member"},
	{ErrInvalidRoll, "invalid_roll"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrAlreadyRolled, "already_rolled"},
	{ErrSenderMismatch, "sender_mismatch"},
	{ErrNotPurchasable, "not_purchasable"},
	{ErrAlreadyOwned, "already_owned"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrNotOnTile, "not_on_tile"},
	{ErrInvalidSuccessor, "invalid_successor"},
}

// Reason maps a rule error to the short code sent to clients.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "rejected"
}
