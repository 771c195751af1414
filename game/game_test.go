package game

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/wfunc/boardserver/board"
	"github.com/wfunc/boardserver/state"
)

func newTestGame(strict bool) *Game {
	rules := DefaultRules()
	rules.StrictTurns = strict
	return New(board.New(200, 200), rules)
}

// checkInvariants verifies the room-wide invariants after any operation.
func checkInvariants(t *testing.T, g *Game) {
	t.Helper()

	seen := map[string]bool{}
	for _, p := range g.members {
		if seen[p.ID] {
			t.Fatalf("Player %s appears twice in members", p.ID)
		}
		seen[p.ID] = true
		if _, ok := g.positions[p.ID]; !ok {
			t.Fatalf("Member %s has no position", p.ID)
		}
		if _, ok := g.balances[p.ID]; !ok {
			t.Fatalf("Member %s has no balance", p.ID)
		}
	}
	if len(g.positions) != len(g.members) || len(g.balances) != len(g.members) {
		t.Fatalf("Positions/balances out of sync with members: %d/%d/%d",
			len(g.positions), len(g.balances), len(g.members))
	}
	for id, pos := range g.positions {
		if pos < 0 || pos >= board.Size {
			t.Fatalf("Player %s at invalid tile %d", id, pos)
		}
	}
	if holder, ok := g.turn.Holder(); ok && !seen[holder] {
		t.Fatalf("Turn holder %s is not a member", holder)
	}
	for tile := range g.ownership {
		if !g.board.Purchasable(tile) {
			t.Fatalf("Non-purchasable tile %d has an owner", tile)
		}
	}
}

func TestGame_JoinInitialisesPlayer(t *testing.T) {
	g := newTestGame(true)

	if !g.Join(Player{ID: "a", Name: "Alice"}) {
		t.Fatal("First join should append the player")
	}
	if g.positions["a"] != 0 {
		t.Errorf("Expected position 0, got %d", g.positions["a"])
	}
	if g.balances["a"] != 1500 {
		t.Errorf("Expected balance 1500, got %d", g.balances["a"])
	}
	checkInvariants(t, g)
}

func TestGame_DuplicateJoinIsIdempotent(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a", Name: "Alice"})
	g.EnsureTurn()
	if _, err := g.ApplyRoll("a", "a", 5); err != nil {
		t.Fatalf("Roll failed: %v", err)
	}

	if g.Join(Player{ID: "a", Name: "Alice again"}) {
		t.Error("Re-joining with the same id should not append")
	}
	if g.Len() != 1 {
		t.Errorf("Expected 1 member, got %d", g.Len())
	}
	if g.positions["a"] != 5 {
		t.Errorf("Re-join should keep the position, got %d", g.positions["a"])
	}
	if g.members[0].Name != "Alice" {
		t.Errorf("Re-join should keep the original name, got %s", g.members[0].Name)
	}
	checkInvariants(t, g)
}

func TestGame_EnsureTurnAssignsFirstMember(t *testing.T) {
	g := newTestGame(true)
	if _, assigned := g.EnsureTurn(); assigned {
		t.Fatal("EnsureTurn on an empty room should not assign")
	}

	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})

	holder, assigned := g.EnsureTurn()
	if !assigned || holder != "a" {
		t.Fatalf("Expected turn assigned to a, got %s (assigned=%v)", holder, assigned)
	}
	holder, assigned = g.EnsureTurn()
	if assigned || holder != "a" {
		t.Errorf("Second EnsureTurn should keep a, got %s (assigned=%v)", holder, assigned)
	}
}

func TestGame_ApplyRollWrapsAndPaysPassGo(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})
	g.positions["a"] = 35

	m, err := g.ApplyRoll("a", "a", 7)
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if m.To != 2 || !m.PassedGo {
		t.Errorf("Expected to land on 2 with pass-go, got %+v", m)
	}
	if g.balances["a"] != 1700 {
		t.Errorf("Expected balance 1700 after pass-go, got %d", g.balances["a"])
	}
}

func TestGame_ApplyRollRejectsInvalidTotals(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})

	for _, rolled := range []int{0, 1, 13, -4} {
		if _, err := g.ApplyRoll("a", "a", rolled); !errors.Is(err, ErrInvalidRoll) {
			t.Errorf("Roll %d: expected ErrInvalidRoll, got %v", rolled, err)
		}
	}
	if _, err := g.ApplyRoll("a", "ghost", 6); !errors.Is(err, ErrNotMember) {
		t.Errorf("Rolling for a non-member should fail with ErrNotMember, got %v", err)
	}
	if _, ok := g.positions["ghost"]; ok {
		t.Error("A rejected roll must not create a position")
	}
}

func TestGame_RentIsAPureTransfer(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "owner"})
	g.Join(Player{ID: "payer"})
	g.ownership[9] = "owner"
	g.positions["payer"] = 3

	before := g.balances["owner"] + g.balances["payer"]
	m, err := g.ApplyRoll("payer", "payer", 6)
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if m.Rent != 200 || m.RentTo != "owner" {
		t.Fatalf("Expected 200 rent to owner, got %+v", m)
	}
	if after := g.balances["owner"] + g.balances["payer"]; after != before {
		t.Errorf("Rent changed the money supply: before %d, after %d", before, after)
	}
	if g.balances["payer"] != 1300 || g.balances["owner"] != 1700 {
		t.Errorf("Unexpected balances %v", g.balances)
	}
}

func TestGame_NoRentOnOwnTile(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})
	g.ownership[6] = "a"

	m, _ := g.ApplyRoll("a", "a", 6)
	if m.Rent != 0 || g.balances["a"] != 1500 {
		t.Errorf("Landing on an own tile should be free, got move %+v balance %d", m, g.balances["a"])
	}
}

func TestGame_RentMayDriveBalanceNegative(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "owner"})
	g.Join(Player{ID: "broke"})
	g.ownership[5] = "owner"
	g.balances["broke"] = 50

	if _, err := g.ApplyRoll("broke", "broke", 5); err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if g.balances["broke"] != -150 {
		t.Errorf("Expected balance -150, got %d", g.balances["broke"])
	}
}

func TestGame_OrphanedOwnershipBlocksPurchaseButCollectsNoRent(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})
	g.ownership[7] = "a"
	g.Remove("a")

	if g.ownership[7] != "a" {
		t.Fatal("Ownership should survive the owner leaving")
	}
	if _, err := g.Buy("b", 7, "b"); !errors.Is(err, ErrAlreadyOwned) {
		t.Errorf("Orphaned tile should stay owned, got %v", err)
	}

	m, _ := g.ApplyRoll("b", "b", 7)
	if m.Rent != 0 || m.RentTo != "" {
		t.Errorf("A departed owner should not collect rent, got %+v", m)
	}
	if g.balances["b"] != 1500 {
		t.Errorf("Expected balance unchanged, got %d", g.balances["b"])
	}
	if _, ok := g.balances["a"]; ok {
		t.Error("A departed owner must not get a balance entry back")
	}
	checkInvariants(t, g)
}

func TestGame_BuyValidations(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})

	tests := []struct {
		name  string
		tile  int
		buyer string
		setup func()
		want  error
	}{
		{"corner", 0, "a", nil, ErrNotPurchasable},
		{"special", 2, "a", nil, ErrNotPurchasable},
		{"off board", 40, "a", nil, ErrNotPurchasable},
		{"non member", 1, "ghost", nil, ErrNotMember},
		{"owned", 3, "b", func() { g.ownership[3] = "a" }, ErrAlreadyOwned},
		{"poor", 5, "b", func() { g.balances["b"] = 199 }, ErrInsufficientFunds},
	}

	for _, tt := range tests {
		if tt.setup != nil {
			tt.setup()
		}
		beforeBalances := g.Balances()
		beforeOwners := len(g.ownership)
		_, err := g.Buy(tt.buyer, tt.tile, tt.buyer)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if len(g.ownership) != beforeOwners {
			t.Errorf("%s: rejected purchase changed ownership", tt.name)
		}
		for id, bal := range beforeBalances {
			if g.balances[id] != bal {
				t.Errorf("%s: rejected purchase changed balance of %s", tt.name, id)
			}
		}
	}
}

func TestGame_BuyExactFunds(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})
	g.balances["a"] = 200

	p, err := g.Buy("a", 1, "a")
	if err != nil {
		t.Fatalf("Buying with exactly the price should succeed, got %v", err)
	}
	if p.Price != 200 || g.balances["a"] != 0 || g.ownership[1] != "a" {
		t.Errorf("Unexpected purchase state: %+v balance=%d owner=%s", p, g.balances["a"], g.ownership[1])
	}
}

func TestGame_BuyAnywhereByDefault(t *testing.T) {
	g := newTestGame(true)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})

	if _, err := g.Buy("a", 1, "a"); err != nil {
		t.Fatalf("A member should buy a tile they are not standing on, got %v", err)
	}
	if _, err := g.Buy("a", 3, "b"); err != nil {
		t.Fatalf("Buying on behalf of another member should succeed, got %v", err)
	}
	if g.ownership[1] != "a" || g.ownership[3] != "b" || g.balances["a"] != 1300 || g.balances["b"] != 1300 {
		t.Errorf("Unexpected state: ownership %v balances %v", g.ownership, g.balances)
	}
}

func TestGame_StrictBuyRequiresStandingOnTile(t *testing.T) {
	rules := DefaultRules()
	rules.StrictPurchases = true
	g := New(board.New(200, 200), rules)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})
	g.positions["a"] = 11

	if _, err := g.Buy("a", 12, "a"); !errors.Is(err, ErrNotOnTile) {
		t.Errorf("Expected ErrNotOnTile, got %v", err)
	}
	if _, err := g.Buy("b", 11, "a"); !errors.Is(err, ErrSenderMismatch) {
		t.Errorf("Expected ErrSenderMismatch, got %v", err)
	}
	if _, err := g.Buy("a", 11, "a"); err != nil {
		t.Errorf("Buying the tile under the player should succeed, got %v", err)
	}
}

func TestGame_StrictRollRules(t *testing.T) {
	g := newTestGame(true)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})
	g.EnsureTurn()

	if _, err := g.ApplyRoll("b", "b", 6); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}
	if _, err := g.ApplyRoll("b", "a", 6); !errors.Is(err, ErrSenderMismatch) {
		t.Errorf("Expected ErrSenderMismatch, got %v", err)
	}
	if _, err := g.ApplyRoll("a", "a", 6); err != nil {
		t.Fatalf("Holder roll should succeed, got %v", err)
	}
	if g.Phase() != state.PhaseRolled {
		t.Errorf("Expected phase rolled, got %s", g.Phase())
	}
	if _, err := g.ApplyRoll("a", "a", 6); !errors.Is(err, ErrAlreadyRolled) {
		t.Errorf("Expected ErrAlreadyRolled, got %v", err)
	}
	if g.positions["a"] != 6 {
		t.Errorf("Rejected roll should not move the player, got %d", g.positions["a"])
	}
}

func TestGame_StrictAdvanceTurn(t *testing.T) {
	g := newTestGame(true)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})
	g.Join(Player{ID: "c"})
	g.EnsureTurn()

	if _, err := g.AdvanceTurn("b", "c"); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}
	if _, err := g.AdvanceTurn("a", "c"); !errors.Is(err, ErrInvalidSuccessor) {
		t.Errorf("Expected ErrInvalidSuccessor, got %v", err)
	}

	next, err := g.AdvanceTurn("a", "")
	if err != nil || next != "b" {
		t.Fatalf("Expected turn to pass to b, got %s (%v)", next, err)
	}
	next, _ = g.AdvanceTurn("b", "c")
	if next != "c" {
		t.Fatalf("Expected turn to pass to c, got %s", next)
	}
	next, _ = g.AdvanceTurn("c", "")
	if next != "a" {
		t.Fatalf("Expected rotation to wrap to a, got %s", next)
	}
	if g.Phase() != state.PhaseAwaitingRoll {
		t.Errorf("New turn should await a roll, got %s", g.Phase())
	}
}

func TestGame_LenientAdvanceTurnTrustsMembers(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})
	g.Join(Player{ID: "c"})
	g.EnsureTurn()

	next, err := g.AdvanceTurn("b", "c")
	if err != nil || next != "c" {
		t.Fatalf("Lenient mode should accept any member, got %s (%v)", next, err)
	}
	if _, err := g.AdvanceTurn("c", "ghost"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for an unknown next id, got %v", err)
	}
	if holder, _ := g.Turn(); holder != "c" {
		t.Errorf("Rejected advance should keep c, got %s", holder)
	}
}

func TestGame_RemoveTurnHolder(t *testing.T) {
	for _, tt := range []struct {
		name   string
		strict bool
		rotate bool
		want   string
	}{
		{"lenient picks first member", false, false, "a"},
		{"strict picks first member", true, false, "a"},
		{"rotate picks rotation successor", true, true, "c"},
	} {
		g := newTestGame(tt.strict)
		g.rules.RotateOnLeave = tt.rotate
		g.Join(Player{ID: "a"})
		g.Join(Player{ID: "b"})
		g.Join(Player{ID: "c"})
		g.turn.Assign("b")

		d := g.Remove("b")
		if !d.WasMember || !d.HeldTurn {
			t.Errorf("%s: unexpected departure %+v", tt.name, d)
		}
		if d.NextTurn != tt.want {
			t.Errorf("%s: expected next turn %s, got %s", tt.name, tt.want, d.NextTurn)
		}
		if holder, _ := g.Turn(); holder != tt.want {
			t.Errorf("%s: expected holder %s, got %s", tt.name, tt.want, holder)
		}
		checkInvariants(t, g)
	}
}

func TestGame_RemoveLastMemberClearsTurn(t *testing.T) {
	g := newTestGame(true)
	g.Join(Player{ID: "a"})
	g.EnsureTurn()

	d := g.Remove("a")
	if !d.HeldTurn || d.NextTurn != "" {
		t.Errorf("Unexpected departure %+v", d)
	}
	if !g.Empty() {
		t.Error("Game should be empty")
	}
	if _, ok := g.Turn(); ok {
		t.Error("Turn should be cleared when the room empties")
	}
}

func TestGame_RemoveNonMember(t *testing.T) {
	g := newTestGame(true)
	g.Join(Player{ID: "a"})
	if d := g.Remove("ghost"); d.WasMember {
		t.Error("Removing a stranger should report WasMember=false")
	}
	if g.Len() != 1 {
		t.Errorf("Expected 1 member, got %d", g.Len())
	}
}

func TestGame_ReleaseOrphanedTiles(t *testing.T) {
	rules := DefaultRules()
	rules.ReleaseOrphanedTiles = true
	g := New(board.New(200, 200), rules)
	g.Join(Player{ID: "a"})
	g.Join(Player{ID: "b"})
	g.ownership[3] = "a"
	g.ownership[5] = "b"
	g.ownership[39] = "a"

	d := g.Remove("a")
	if len(d.Released) != 2 || d.Released[0] != 3 || d.Released[1] != 39 {
		t.Errorf("Expected tiles 3 and 39 released, got %v", d.Released)
	}
	if _, ok := g.ownership[3]; ok {
		t.Error("Tile 3 should be back on the market")
	}
	if g.ownership[5] != "b" {
		t.Error("Other players keep their tiles")
	}
}

// The room "ABC" walk-through: buy, wrap around, pay rent and collect pass-go.
func TestGame_ScenarioRentAfterWraparound(t *testing.T) {
	g := newTestGame(false)
	g.Join(Player{ID: "A", Name: "Alice"})
	g.EnsureTurn()

	m, err := g.ApplyRoll("A", "A", 11)
	if err != nil {
		t.Fatalf("A roll failed: %v", err)
	}
	if m.To != 11 || m.PassedGo || m.Rent != 0 || g.balances["A"] != 1500 {
		t.Fatalf("Unexpected first move %+v balance %d", m, g.balances["A"])
	}

	if _, err := g.Buy("A", 11, "A"); err != nil {
		t.Fatalf("A buy failed: %v", err)
	}
	if g.balances["A"] != 1300 || g.ownership[11] != "A" {
		t.Fatalf("Unexpected state after purchase: balance %d owner %s", g.balances["A"], g.ownership[11])
	}

	g.Join(Player{ID: "B", Name: "Bob"})
	for _, rolled := range []int{12, 12, 12, 3} {
		if _, err := g.ApplyRoll("B", "B", rolled); err != nil {
			t.Fatalf("B roll %d failed: %v", rolled, err)
		}
	}
	if g.positions["B"] != 39 || g.balances["B"] != 1500 {
		t.Fatalf("B should stand on 39 with 1500, got %d/%d", g.positions["B"], g.balances["B"])
	}

	m, _ = g.ApplyRoll("B", "B", 12)
	if m.To != 11 || !m.PassedGo || m.Rent != 200 || m.RentTo != "A" {
		t.Fatalf("Unexpected wraparound move %+v", m)
	}
	if g.balances["B"] != 1500 {
		t.Errorf("B should net zero (bonus minus rent), got %d", g.balances["B"])
	}
	if g.balances["A"] != 1500 {
		t.Errorf("A should receive rent back to 1500, got %d", g.balances["A"])
	}
	checkInvariants(t, g)
}

// Random play never breaks the room invariants, and rent never creates money.
func TestGame_RandomPlayKeepsInvariants(t *testing.T) {
	for _, strict := range []bool{false, true} {
		g := newTestGame(strict)
		rng := rand.New(rand.NewSource(99))
		ids := []string{"p1", "p2", "p3", "p4"}

		for step := 0; step < 2000; step++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(6) {
			case 0:
				g.Join(Player{ID: id})
				g.EnsureTurn()
			case 1:
				if rng.Intn(4) == 0 {
					g.Remove(id)
				}
			case 2, 3:
				if holder, ok := g.Turn(); ok && strict {
					id = holder
				}
				before := g.Balances()
				m, err := g.ApplyRoll(id, id, 2+rng.Intn(11))
				if err == nil && m.Rent > 0 {
					sumBefore := before[m.PlayerID] + before[m.RentTo] + m.Bonus
					if sumAfter := g.balances[m.PlayerID] + g.balances[m.RentTo]; sumAfter != sumBefore {
						t.Fatalf("Rent not conserved: before %d after %d", sumBefore, sumAfter)
					}
				}
			case 4:
				g.Buy(id, g.positions[id], id)
			case 5:
				if holder, ok := g.Turn(); ok {
					g.AdvanceTurn(holder, "")
				}
			}
			checkInvariants(t, g)
		}
	}
}
