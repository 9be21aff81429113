package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/testutils"
)

func action(uid, text string) domain.Message {
	return domain.Message{Text: text, Type: domain.MessageAction, AuthorUID: uid}
}

func chat(uid, text string) domain.Message {
	return domain.Message{Text: text, Type: domain.MessageChat, AuthorUID: uid}
}

func request(target, name string, resolved bool, args ...string) domain.Message {
	return domain.Message{
		Text:      name,
		Type:      domain.MessageChat,
		AuthorUID: testutils.DM.UID,
		Request:   &domain.Request{Target: target, Command: domain.Command{Name: name, Args: args}, Resolved: resolved},
	}
}

func TestTurnPhase(t *testing.T) {
	dm, p1 := testutils.DM.UID, testutils.Player1.UID

	cases := []struct {
		name string
		log  domain.Log
		want Phase
	}{
		{"empty log", nil, PhaseDM},
		{"after DM action", domain.Log{action(dm, "Incipit!")}, PhasePlayers},
		{"after player action", domain.Log{action(dm, "Incipit!"), action(p1, "go")}, PhaseDM},
		{"chat only", domain.Log{chat(dm, "hello")}, PhaseDM},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TurnPhase(tc.log, testutils.IsDM))
		})
	}
}

func TestTurnPhase_IgnoresChat(t *testing.T) {
	dm, p1 := testutils.DM.UID, testutils.Player1.UID
	base := domain.Log{action(dm, "Incipit!")}

	padded := domain.Log{chat(p1, "hi")}
	padded = append(padded, base...)
	padded = append(padded, chat(p1, "ok"), chat(dm, "go on"), request(p1, "hit", false, "player1", "1"))

	assert.Equal(t, TurnPhase(base, testutils.IsDM), TurnPhase(padded, testutils.IsDM))
	// Derivations are pure: a second call on the same snapshot agrees.
	assert.Equal(t, TurnPhase(padded, testutils.IsDM), TurnPhase(padded, testutils.IsDM))
}

func TestCanSubmitAction(t *testing.T) {
	dm := testutils.DM.UID
	roster := domain.Roster(testutils.Characters())
	dead := domain.Roster(testutils.Characters())
	dead[0].HP = -3

	assert.NoError(t, CanSubmitAction(nil, roster, testutils.DM, testutils.IsDM))
	assert.NoError(t, CanSubmitAction(domain.Log{action(dm, "x")}, roster, testutils.DM, testutils.IsDM))

	assert.ErrorIs(t, CanSubmitAction(nil, roster, testutils.Player1, testutils.IsDM), ErrNotYourTurn)
	assert.NoError(t, CanSubmitAction(domain.Log{action(dm, "x")}, roster, testutils.Player1, testutils.IsDM))
	assert.ErrorIs(t, CanSubmitAction(domain.Log{action(dm, "x")}, dead, testutils.Player1, testutils.IsDM), ErrCharacterDead)
	assert.ErrorIs(t, CanSubmitAction(nil, dead, testutils.Player1, testutils.IsDM), ErrCharacterDead)
}

func TestCanSubmitChat(t *testing.T) {
	assert.NoError(t, CanSubmitChat("hello"))
	assert.NoError(t, CanSubmitChat("/hit player1 3"))
	assert.ErrorIs(t, CanSubmitChat(""), ErrEmptyText)
	assert.ErrorIs(t, CanSubmitChat(" \n\t"), ErrEmptyText)
}

func TestVisible(t *testing.T) {
	dm, p1, p2 := testutils.DM.UID, testutils.Player1.UID, testutils.Player2.UID

	secret := chat(dm, "!!! Unknown command: x !!!")
	secret.Private = true
	whisper := request(p1, "hit", false, "player1", "2")
	whisper.Private = true
	log := domain.Log{chat(p2, "hi"), secret, whisper}

	assert.Len(t, Visible(log, dm), 3)
	assert.Equal(t, domain.Log{chat(p2, "hi"), whisper}, Visible(log, p1))
	assert.Equal(t, domain.Log{chat(p2, "hi")}, Visible(log, p2))
}

func TestShowRollButton(t *testing.T) {
	p1 := testutils.Player1.UID

	assert.False(t, ShowRollButton(nil, p1))
	assert.True(t, ShowRollButton(domain.Log{request(p1, "skillcheck", false, "player1", "str", "10")}, p1))
	assert.True(t, ShowRollButton(domain.Log{request(p1, "askroll", false, "player1", "1d20")}, p1))
	assert.False(t, ShowRollButton(domain.Log{request(p1, "hit", false, "player1", "3")}, p1))
	assert.False(t, ShowRollButton(domain.Log{request(p1, "skillcheck", false, "player1", "str", "10")}, testutils.Player2.UID))

	// Only the latest request counts, even when an older one is still open.
	log := domain.Log{
		request(p1, "skillcheck", false, "player1", "str", "10"),
		request(p1, "askroll", true, "player1", "1d20"),
	}
	assert.False(t, ShowRollButton(log, p1))
}

func TestBuildView_PlayerWithoutCharacter(t *testing.T) {
	stranger := domain.User{UID: "zzz"}
	view := BuildView(nil, domain.Roster(testutils.Characters()), stranger, testutils.IsDM)

	assert.Nil(t, view.Sheet)
	assert.False(t, view.CanAct)
	assert.Equal(t, ErrNotYourTurn.Error(), view.ActBlocked)
	assert.True(t, view.CanChat)
}

func sessionLog() domain.Log {
	dm, p1, p2 := testutils.DM.UID, testutils.Player1.UID, testutils.Player2.UID
	return domain.Log{
		action(dm, "Incipit!"),
		chat(p1, "hi"),
		request(p1, "skillcheck", true, "player1", "str", "12"),
		chat(p1, "PLAYER1 rolled a 15!"),
		action(p1, "I open the door"),
		action(dm, "A goblin jumps out"),
		request(p2, "hit", false, "player2", "3"),
		chat(dm, "careful"),
	}
}

func TestDerivations_AreIdempotent(t *testing.T) {
	log := sessionLog()
	roster := domain.Roster(testutils.Characters())

	for _, user := range []domain.User{testutils.DM, testutils.Player1, testutils.Player2} {
		assert.Equal(t, BuildView(log, roster, user, testutils.IsDM), BuildView(log, roster, user, testutils.IsDM))

		first, ok1 := log.PendingRequest(user.UID)
		second, ok2 := log.PendingRequest(user.UID)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, second)
	}
	assert.Equal(t, TurnPhase(log, testutils.IsDM), TurnPhase(log, testutils.IsDM))
}

func TestDerivations_PrefixThenFullLogAgrees(t *testing.T) {
	log := sessionLog()
	roster := domain.Roster(testutils.Characters())
	p2 := testutils.Player2

	wantPhase := TurnPhase(log, testutils.IsDM)
	wantPending, wantOK := log.PendingRequest(p2.UID)
	wantView := BuildView(log, roster, p2, testutils.IsDM)

	// Deriving from a prefix first must not change what the full log yields.
	for i := range log {
		prefix := log[:i]
		TurnPhase(prefix, testutils.IsDM)
		prefix.PendingRequest(p2.UID)
		BuildView(prefix, roster, p2, testutils.IsDM)

		assert.Equal(t, wantPhase, TurnPhase(log, testutils.IsDM))
		pending, ok := log.PendingRequest(p2.UID)
		assert.Equal(t, wantOK, ok)
		assert.Equal(t, wantPending, pending)
		assert.Equal(t, wantView, BuildView(log, roster, p2, testutils.IsDM))
	}

	assert.Equal(t, PhasePlayers, wantPhase)
	assert.True(t, wantOK)
	assert.Equal(t, "hit", wantPending.Request.Command.Name)
}

func TestTurnPhase_FollowsLastActionAcrossPrefixes(t *testing.T) {
	log := sessionLog()
	for i := range len(log) + 1 {
		prefix := log[:i]
		want := PhaseDM
		if last, ok := prefix.LastAction(); ok && testutils.IsDM(last.AuthorUID) {
			want = PhasePlayers
		}
		assert.Equal(t, want, TurnPhase(prefix, testutils.IsDM), "prefix of %d", i)
	}
}
