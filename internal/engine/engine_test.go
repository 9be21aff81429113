package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nfrund/tavern/internal/database/memstore"
	"github.com/nfrund/tavern/internal/dice"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/pubsub"
	"github.com/nfrund/tavern/internal/testutils"
)

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Topic)
	}
	return out
}

type EngineTestSuite struct {
	suite.Suite
	ctx    context.Context
	store  *memstore.Store
	faces  *testutils.Faces
	pub    *recordingPublisher
	engine *Engine
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	for _, c := range testutils.Characters() {
		_, err := s.store.Upsert(s.ctx, c)
		s.Require().NoError(err)
	}
	s.faces = testutils.NewFaces()
	s.pub = &recordingPublisher{}

	e, err := New(Dependencies{
		Log:        s.store,
		Characters: s.store,
		Dice:       dice.NewResolver(s.faces),
		IsDM:       testutils.IsDM,
		Publisher:  s.pub,
	})
	s.Require().NoError(err)
	s.engine = e
}

func (s *EngineTestSuite) messages() []domain.Message {
	msgs, err := s.store.QueryOrdered(s.ctx, 100)
	s.Require().NoError(err)
	return msgs
}

func (s *EngineTestSuite) character(uid string) *domain.Character {
	c, err := s.store.FindByUID(s.ctx, uid)
	s.Require().NoError(err)
	return c
}

func (s *EngineTestSuite) submit(user domain.User, kind domain.MessageType, text string) *domain.Message {
	msg, err := s.engine.Submit(s.ctx, user, kind, text)
	s.Require().NoError(err)
	return msg
}

func (s *EngineTestSuite) TestDMOpensTheRound() {
	s.submit(testutils.DM, domain.MessageAction, "Incipit!")

	msgs := s.messages()
	s.Require().Len(msgs, 1)
	s.Equal(domain.MessageAction, msgs[0].Type)
	s.Equal(PhasePlayers, TurnPhase(msgs, testutils.IsDM))
}

func (s *EngineTestSuite) TestPlayerCannotOpenTheRound() {
	_, err := s.engine.Submit(s.ctx, testutils.Player1, domain.MessageAction, "go!")
	s.ErrorIs(err, ErrNotYourTurn)
	s.Empty(s.messages())
}

func (s *EngineTestSuite) TestSkillCheckSuccess() {
	s.submit(testutils.DM, domain.MessageAction, "/skillcheck player1 str 20")
	s.faces.Push(19)

	msg, err := s.engine.Roll(s.ctx, testutils.Player1)
	s.Require().NoError(err)
	s.Equal("PLAYER1 rolled a 19!\n19 + 4 = 23\nIt's a success!", msg.Text)
	s.Equal(domain.MessageChat, msg.Type)

	msgs := s.messages()
	s.Require().Len(msgs, 2)
	s.True(msgs[0].Request.Resolved)
}

func (s *EngineTestSuite) TestSkillCheckFailure() {
	s.submit(testutils.DM, domain.MessageAction, "/skillcheck player1 str 20")
	s.faces.Push(2)

	msg, err := s.engine.Roll(s.ctx, testutils.Player1)
	s.Require().NoError(err)
	s.Equal("PLAYER1 rolled a 2!\n2 + 4 = 6\nIt's a failure!", msg.Text)
	s.True(s.messages()[0].Request.Resolved)

	_, err = s.engine.Roll(s.ctx, testutils.Player1)
	s.ErrorIs(err, ErrNoPendingRoll)
}

func (s *EngineTestSuite) TestAskRoll() {
	s.submit(testutils.DM, domain.MessageAction, "/askroll player1 3d6")
	s.faces.Push(4, 6, 1)

	msg, err := s.engine.Roll(s.ctx, testutils.Player1)
	s.Require().NoError(err)
	s.Equal("PLAYER1 rolled 3d6!\n4 + 6 + 1 = 11", msg.Text)
}

func (s *EngineTestSuite) TestRollWithoutRequest() {
	_, err := s.engine.Roll(s.ctx, testutils.Player1)
	s.ErrorIs(err, ErrNoPendingRoll)

	s.submit(testutils.DM, domain.MessageAction, "/skillcheck player1 str 20")
	_, err = s.engine.Roll(s.ctx, testutils.Player2)
	s.ErrorIs(err, ErrNoPendingRoll)
}

func (s *EngineTestSuite) TestHitKillsAndBlocksActions() {
	s.submit(testutils.DM, domain.MessageAction, "/hit player1 30")

	view, err := s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)

	s.Equal(-15, s.character(testutils.Player1.UID).HP)
	msgs := s.messages()
	s.Require().Len(msgs, 2)
	s.True(msgs[0].Request.Resolved)
	s.Equal("PLAYER1, you are dead.", msgs[1].Text)
	s.Equal(domain.MessageChat, msgs[1].Type)

	s.Require().NotNil(view.Sheet)
	s.True(view.Sheet.Dead)
	s.False(view.CanAct)

	// A second observation must not apply the hit again.
	_, err = s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)
	s.Equal(-15, s.character(testutils.Player1.UID).HP)
	s.Len(s.messages(), 2)

	s.submit(testutils.DM, domain.MessageAction, "The goblins cheer.")
	_, err = s.engine.Submit(s.ctx, testutils.Player1, domain.MessageAction, "I stand up")
	s.ErrorIs(err, ErrCharacterDead)
}

func (s *EngineTestSuite) TestHitIsOnlyAppliedByTheTarget() {
	s.submit(testutils.DM, domain.MessageAction, "/hit player1 5")

	_, err := s.engine.Observe(s.ctx, testutils.DM)
	s.Require().NoError(err)
	_, err = s.engine.Observe(s.ctx, testutils.Player2)
	s.Require().NoError(err)
	s.Equal(15, s.character(testutils.Player1.UID).HP)

	_, err = s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)
	s.Equal(10, s.character(testutils.Player1.UID).HP)
	s.Len(s.messages(), 1)
}

func (s *EngineTestSuite) TestHealClampsToMax() {
	s.submit(testutils.DM, domain.MessageAction, "/hit player1 5")
	_, err := s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)

	s.submit(testutils.DM, domain.MessageAction, "/heal player1 20")
	_, err = s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)

	s.Equal(15, s.character(testutils.Player1.UID).HP)
	for _, m := range s.messages() {
		s.True(m.Request.Resolved)
	}
}

func (s *EngineTestSuite) TestNegativeAmountsAreRejected() {
	s.submit(testutils.DM, domain.MessageAction, "/hit player1 -100")
	s.submit(testutils.DM, domain.MessageAction, "/heal player1 -100")

	_, err := s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)

	s.Equal(15, s.character(testutils.Player1.UID).HP)
	msgs := s.messages()
	s.Require().Len(msgs, 2)
	for _, m := range msgs {
		s.True(m.Private)
		s.Nil(m.Request)
		s.Equal("!!! Hit Points must be a positive number. Provided: -100 !!!", m.Text)
	}
}

func (s *EngineTestSuite) TestStoredNegativeAmountKeepsHPInRange() {
	_, err := s.store.Append(s.ctx, request(testutils.Player1.UID, "hit", false, "player1", "-100"))
	s.Require().NoError(err)

	_, err = s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)

	c := s.character(testutils.Player1.UID)
	s.Equal(15, c.HP)
	s.LessOrEqual(c.HP, c.MaxHP)
	s.True(s.messages()[0].Request.Resolved)
}

func (s *EngineTestSuite) TestSecondRequestWhilePending() {
	s.submit(testutils.DM, domain.MessageAction, "/skillcheck player1 str 20")
	s.submit(testutils.DM, domain.MessageAction, "/skillcheck player1 dex 20")

	msgs := s.messages()
	s.Require().Len(msgs, 2)
	s.Equal("PLAYER1, make a STR skill check! (DC 20)", msgs[0].Text)
	s.Equal("!!! player1 has another request pending !!!", msgs[1].Text)
	s.True(msgs[1].Private)
	s.Equal(domain.MessageChat, msgs[1].Type)
}

func (s *EngineTestSuite) TestActionPurgesChat() {
	s.submit(testutils.DM, domain.MessageAction, "A door creaks open.")
	s.submit(testutils.Player1, domain.MessageChat, "did you hear that?")
	s.submit(testutils.Player2, domain.MessageChat, "run")
	s.submit(testutils.Player1, domain.MessageAction, "I peek inside.")

	msgs := s.messages()
	s.Require().Len(msgs, 2)
	for _, m := range msgs {
		s.Equal(domain.MessageAction, m.Type)
	}
	s.Equal(PhaseDM, TurnPhase(msgs, testutils.IsDM))
}

func (s *EngineTestSuite) TestCommandResultDoesNotPurgeChat() {
	s.submit(testutils.Player1, domain.MessageChat, "ready")
	s.submit(testutils.DM, domain.MessageAction, "/roll 2d6")

	msgs := s.messages()
	s.Require().Len(msgs, 2)
	s.Equal("ready", msgs[0].Text)
}

func (s *EngineTestSuite) TestChatWithMarkerIsLiteral() {
	msg := s.submit(testutils.DM, domain.MessageChat, "/hit player1 3")
	s.Equal("/hit player1 3", msg.Text)
	s.Nil(msg.Request)
}

func (s *EngineTestSuite) TestSubmitRefusals() {
	_, err := s.engine.Submit(s.ctx, testutils.Player1, domain.MessageChat, "   \t ")
	s.ErrorIs(err, ErrEmptyText)

	_, err = s.engine.Submit(s.ctx, testutils.Player1, domain.MessageType("shout"), "hey")
	s.ErrorIs(err, ErrInvalidKind)

	s.Empty(s.messages())
}

func (s *EngineTestSuite) TestSubmitTrimsText() {
	msg := s.submit(testutils.Player1, domain.MessageChat, "  hello  ")
	s.Equal("hello", msg.Text)
	s.Equal(testutils.Player1.PhotoURL, msg.PhotoURL)
}

func (s *EngineTestSuite) TestPrivateErrorsOnlyVisibleToDM() {
	s.submit(testutils.DM, domain.MessageAction, "/fireball player1")

	dmView, err := s.engine.Observe(s.ctx, testutils.DM)
	s.Require().NoError(err)
	s.Require().Len(dmView.Messages, 1)
	s.Equal("!!! Unknown command: fireball !!!", dmView.Messages[0].Text)

	playerView, err := s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)
	s.Empty(playerView.Messages)
}

func (s *EngineTestSuite) TestObserveView() {
	s.submit(testutils.DM, domain.MessageAction, "Roll for it.")
	s.submit(testutils.DM, domain.MessageAction, "/skillcheck player1 dex 12")

	view, err := s.engine.Observe(s.ctx, testutils.Player1)
	s.Require().NoError(err)

	s.Equal(PhasePlayers, view.Phase)
	s.True(view.CanChat)
	s.True(view.CanAct)
	s.True(view.ShowRoll)
	s.Require().NotNil(view.Pending)
	s.Equal("skillcheck", view.Pending.Request.Command.Name)
	s.Equal([]string{"player1", "player2"}, view.Players)
	s.Require().NotNil(view.Sheet)
	s.Equal(-1, view.Sheet.Modifiers[domain.StatDex])
	s.Equal(7, view.Sheet.Modifiers[domain.StatInt])

	dmView, err := s.engine.Observe(s.ctx, testutils.DM)
	s.Require().NoError(err)
	s.True(dmView.IsDM)
	s.Nil(dmView.Sheet)
	s.False(dmView.ShowRoll)
}

func (s *EngineTestSuite) TestEventsArePublished() {
	s.submit(testutils.DM, domain.MessageAction, "Incipit!")

	s.Equal([]string{
		ChatsPurged.Name(),
		MessageAppended.Name(),
		LogChanged.Name(),
	}, s.pub.topics())
}

func TestNew_MissingDependencies(t *testing.T) {
	store := memstore.New()

	_, err := New(Dependencies{Characters: store, Dice: dice.NewSeededResolver(1), IsDM: testutils.IsDM})
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = New(Dependencies{Log: store, Characters: store, Dice: dice.NewSeededResolver(1)})
	assert.ErrorIs(t, err, ErrMissingDependency)

	e, err := New(Dependencies{Log: store, Characters: store, Dice: dice.NewSeededResolver(1), IsDM: testutils.IsDM})
	require.NoError(t, err)
	assert.Equal(t, DefaultMessageLimit, e.limit)
	assert.Equal(t, []string{"skillcheck", "hit", "heal", "askroll", "roll"}, e.Commands())
}
