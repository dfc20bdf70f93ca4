package lobby

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durak-online/server/internal/models"
)

func testOwner() Owner {
	return Owner{ID: uuid.New(), Name: "host"}
}

func testLobby(maxPlayers int) models.Lobby {
	return AdmitCreate(CreateParams{
		MaxPlayers:      maxPlayers,
		RoundTimeoutSec: 120,
	}, "482913", "", testOwner())
}

func TestCreateParamsValidate(t *testing.T) {
	valid := CreateParams{MaxPlayers: 4, RoundTimeoutSec: 120}
	assert.NoError(t, valid.Validate())

	cases := []CreateParams{
		{MaxPlayers: 1, RoundTimeoutSec: 120},
		{MaxPlayers: 9, RoundTimeoutSec: 120},
		{MaxPlayers: 7, RoundTimeoutSec: 120, SmallDeck: true},
		{MaxPlayers: 4, RoundTimeoutSec: 59},
		{MaxPlayers: 4, RoundTimeoutSec: 601},
	}
	for _, p := range cases {
		err := p.Validate()
		assert.ErrorIs(t, err, ErrBadRequest, "params %+v should fail", p)
	}

	// Small deck tightens the cap but 2-6 stays fine.
	small := CreateParams{MaxPlayers: 6, RoundTimeoutSec: 120, SmallDeck: true}
	assert.NoError(t, small.Validate())
}

func TestAdmitCreateOwnerSlot(t *testing.T) {
	owner := testOwner()
	l := AdmitCreate(CreateParams{MaxPlayers: 4, RoundTimeoutSec: 120, With2FA: true}, "111222", "Q7ZK", owner)

	assert.Equal(t, models.StatusWaiting, l.Status)
	assert.Equal(t, "111222", l.Pin)
	assert.Equal(t, "Q7ZK", l.Passphrase)
	assert.Equal(t, owner.ID, l.OwnerID)
	require.Len(t, l.Players, 1)
	assert.True(t, l.Players[0].Confirmed)
	assert.True(t, l.Players[0].Registered)
	assert.Equal(t, owner.Name, l.Players[0].Name)
}

func TestAdmitJoinAppends(t *testing.T) {
	l := testLobby(4)

	next, slot, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
	require.Len(t, next.Players, 2)
	assert.False(t, next.Players[1].Confirmed)
	assert.Equal(t, "alice", next.Players[1].Name)

	// The snapshot passed in is untouched.
	assert.Len(t, l.Players, 1)
}

func TestAdmitJoinGateOrder(t *testing.T) {
	owner := testOwner()
	l := AdmitCreate(CreateParams{MaxPlayers: 2, RoundTimeoutSec: 120, With2FA: true}, "333444", "Q7ZK", owner)

	// Fill to confirmed capacity.
	next, _, err := AdmitJoin(l, JoinRequest{Name: "alice", Passphrase: "Q7ZK"})
	require.NoError(t, err)
	next, err = ConfirmSlot(next, "alice", "conn-1")
	require.NoError(t, err)

	// A full lobby reports LobbyFull even when the passphrase is also
	// wrong and the name also taken: the first gate wins.
	_, _, err = AdmitJoin(next, JoinRequest{Name: "alice", Passphrase: "WRONG"})
	assert.ErrorIs(t, err, ErrLobbyFull)

	// With capacity available, the passphrase gate fires before the name
	// checks.
	_, _, err = AdmitJoin(l, JoinRequest{Name: "has space", Passphrase: "WRONG"})
	assert.ErrorIs(t, err, ErrInvalidPassphrase)

	// Bad name shape beats the availability check.
	_, _, err = AdmitJoin(l, JoinRequest{Name: "", Passphrase: "Q7ZK"})
	assert.ErrorIs(t, err, ErrBadName)
}

func TestAdmitJoinStatusGate(t *testing.T) {
	l := testLobby(4)
	l.Status = models.StatusPlaying

	_, _, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestAdmitJoinNameTaken(t *testing.T) {
	l := testLobby(4)
	next, _, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	require.NoError(t, err)

	// Unconfirmed duplicates are allowed; only confirmed names block.
	_, _, err = AdmitJoin(next, JoinRequest{Name: "alice"})
	assert.NoError(t, err)

	next, err = ConfirmSlot(next, "alice", "conn-1")
	require.NoError(t, err)
	_, _, err = AdmitJoin(next, JoinRequest{Name: "alice"})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestAdmitJoinRegisteredAlreadyJoined(t *testing.T) {
	l := testLobby(4)
	userID := uuid.New()
	req := JoinRequest{Name: "bob", UserID: userID, Registered: true}

	next, _, err := AdmitJoin(l, req)
	require.NoError(t, err)

	// Unconfirmed registered slot does not trigger AlreadyJoined.
	_, _, err = AdmitJoin(next, req)
	assert.NoError(t, err)

	next, err = ConfirmSlot(next, "bob", "conn-1")
	require.NoError(t, err)
	_, _, err = AdmitJoin(next, req)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestAdmitJoinRegisteredBadName(t *testing.T) {
	l := testLobby(4)

	// Registered names come from the join body too, so the same shape
	// rules apply; a malformed one must never reach a slot.
	bad := []string{
		"has  whitespace and is far longer than twenty characters",
		"tab\there",
		"",
	}
	for _, name := range bad {
		_, _, err := AdmitJoin(l, JoinRequest{Name: name, UserID: uuid.New(), Registered: true})
		assert.ErrorIs(t, err, ErrBadName, "name %q should be rejected", name)
	}

	// A well-formed registered name still goes through and can confirm.
	next, _, err := AdmitJoin(l, JoinRequest{Name: "bob", UserID: uuid.New(), Registered: true})
	require.NoError(t, err)
	next, err = ConfirmSlot(next, "bob", "conn-1")
	require.NoError(t, err)
	for _, p := range next.Players {
		if p.Confirmed {
			assert.True(t, ValidName(p.Name))
		}
	}
}

func TestAdmitJoinOverwritesUnconfirmedSlot(t *testing.T) {
	l := testLobby(3)

	// alice confirms, bob stalls mid-handshake.
	next, _, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	require.NoError(t, err)
	next, err = ConfirmSlot(next, "alice", "conn-1")
	require.NoError(t, err)
	next, _, err = AdmitJoin(next, JoinRequest{Name: "bob"})
	require.NoError(t, err)
	require.Len(t, next.Players, 3)

	// All slots allocated; carol takes over bob's abandoned slot.
	next2, slot, err := AdmitJoin(next, JoinRequest{Name: "carol"})
	require.NoError(t, err)
	assert.Equal(t, 2, slot)
	require.Len(t, next2.Players, 3)
	assert.Equal(t, "carol", next2.Players[2].Name)
	assert.False(t, next2.Players[2].Confirmed)

	// Untouched slots are shared with the input snapshot.
	assert.Equal(t, next.Players[0], next2.Players[0])
	assert.Equal(t, next.Players[1], next2.Players[1])
}

func TestCheckNameFree(t *testing.T) {
	l := testLobby(4)
	assert.False(t, CheckNameFree(l, "host"), "owner slot is confirmed")
	assert.True(t, CheckNameFree(l, "Host"), "comparison is case-sensitive")
	assert.True(t, CheckNameFree(l, "alice"))

	next, _, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	require.NoError(t, err)
	assert.True(t, CheckNameFree(next, "alice"), "unconfirmed slot does not reserve the name")

	next, err = ConfirmSlot(next, "alice", "conn-1")
	require.NoError(t, err)
	assert.False(t, CheckNameFree(next, "alice"))
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("alice"))
	assert.True(t, ValidName("a"))
	assert.True(t, ValidName("ÅçèNT_player-99"))

	assert.False(t, ValidName(""))
	assert.False(t, ValidName("this-name-is-way-too-long-to-pass"))
	assert.False(t, ValidName("has space"))
	assert.False(t, ValidName("tab\there"))
	assert.False(t, ValidName("trailing "))

	// Broken UTF-8 is not a sequence of short runes, it is rejected.
	assert.False(t, ValidName("bad\xff\xfe"))
	assert.False(t, ValidName(string([]byte{0xc3, 0x28})))
}

func TestAuthorizeOwnerAction(t *testing.T) {
	owner := testOwner()
	l := AdmitCreate(CreateParams{MaxPlayers: 4, RoundTimeoutSec: 120}, "555666", "", owner)

	assert.True(t, AuthorizeOwnerAction(l, owner.ID))
	assert.False(t, AuthorizeOwnerAction(l, uuid.New()))
}

func TestConfirmSlot(t *testing.T) {
	l := testLobby(4)
	next, _, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	require.NoError(t, err)

	confirmed, err := ConfirmSlot(next, "alice", "conn-1")
	require.NoError(t, err)
	assert.True(t, confirmed.Players[1].Confirmed)
	assert.Equal(t, "conn-1", confirmed.Players[1].ConnToken)

	// Same token is idempotent; a different connection is rejected.
	_, err = ConfirmSlot(confirmed, "alice", "conn-1")
	assert.NoError(t, err)
	_, err = ConfirmSlot(confirmed, "alice", "conn-2")
	assert.ErrorIs(t, err, ErrNameTaken)

	// No slot for the name at all.
	_, err = ConfirmSlot(l, "ghost", "conn-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseSlot(t *testing.T) {
	l := testLobby(4)
	next, _, err := AdmitJoin(l, JoinRequest{Name: "alice"})
	require.NoError(t, err)
	next, err = ConfirmSlot(next, "alice", "conn-1")
	require.NoError(t, err)

	released, changed := ReleaseSlot(next, "alice")
	assert.True(t, changed)
	assert.False(t, released.Players[1].Confirmed)
	assert.Empty(t, released.Players[1].ConnToken)

	_, changed = ReleaseSlot(released, "alice")
	assert.False(t, changed, "already released")
}
