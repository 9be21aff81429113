package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/testutils"
)

// StoreSuite runs against a real SurrealDB configured by .env.test.
type StoreSuite struct {
	suite.Suite
	ctx        context.Context
	conn       *Connection
	messages   *MessageStore
	characters *CharacterStore
}

func TestStoreSuite(t *testing.T) {
	cfg := testutils.RequireDB(t)

	conn := NewConnection(cfg)
	if err := conn.Connect(context.Background()); err != nil {
		t.Skipf("SurrealDB unavailable: %v", err)
	}

	suite.Run(t, &StoreSuite{
		conn:       conn,
		messages:   NewMessageStore(conn, cfg),
		characters: NewCharacterStore(conn, cfg),
	})
}

func (s *StoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.Require().NoError(EnsureSchema(s.ctx, s.conn))
}

func (s *StoreSuite) TearDownSuite() {
	s.Require().NoError(s.conn.Close(context.Background()))
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.messages.Clear(s.ctx))
	s.Require().NoError(s.conn.WithConnection(s.ctx, func(db *surrealdb.DB) error {
		return Execute(s.ctx, db, "DELETE character", nil)
	}))
}

func (s *StoreSuite) TestLogLifecycle() {
	_, err := s.messages.Append(s.ctx, domain.Message{Text: "Incipit!", Type: domain.MessageAction, AuthorUID: "dm-uid"})
	s.Require().NoError(err)
	_, err = s.messages.Append(s.ctx, domain.Message{Text: "hi", Type: domain.MessageChat, AuthorUID: "abc"})
	s.Require().NoError(err)
	req, err := s.messages.Append(s.ctx, domain.Message{
		Text:      "PLAYER1, make a STR skill check! (DC 20)",
		Type:      domain.MessageChat,
		AuthorUID: "dm-uid",
		Request:   &domain.Request{Target: "abc", Command: domain.Command{Name: "skillcheck", Args: []string{"player1", "str", "20"}}},
	})
	s.Require().NoError(err)
	s.NotEmpty(req.ID)
	s.False(req.CreatedAt.IsZero())

	log, err := s.messages.QueryOrdered(s.ctx, 100)
	s.Require().NoError(err)
	s.Require().Len(log, 3)
	s.Equal("Incipit!", log[0].Text)
	s.Require().NotNil(log[2].Request)
	s.False(log[2].Request.Resolved)

	last, err := s.messages.QueryOrdered(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(last, 1)
	s.Equal(req.ID, last[0].ID)

	s.Require().NoError(s.messages.MarkResolved(s.ctx, req.ID))
	s.Require().NoError(s.messages.DeleteWhere(s.ctx, domain.MessageFilter{Type: domain.MessageChat}))

	log, err = s.messages.QueryOrdered(s.ctx, 100)
	s.Require().NoError(err)
	s.Require().Len(log, 1)
	s.Equal(domain.MessageAction, log[0].Type)

	s.ErrorIs(s.messages.MarkResolved(s.ctx, log[0].ID), ErrNotFound)
}

func (s *StoreSuite) TestCharacters() {
	c, err := s.characters.Upsert(s.ctx, testutils.Characters()[0])
	s.Require().NoError(err)
	s.Require().NotEmpty(c.ID)

	s.Require().NoError(s.characters.UpdateHP(s.ctx, c.ID, -15))

	got, err := s.characters.FindByUID(s.ctx, c.UID)
	s.Require().NoError(err)
	s.Equal(-15, got.HP)
	s.True(got.IsDead())

	again, err := s.characters.Upsert(s.ctx, testutils.Characters()[0])
	s.Require().NoError(err)
	s.Equal(c.ID, again.ID)

	roster, err := s.characters.List(s.ctx)
	s.Require().NoError(err)
	s.Len(roster, 1)

	_, err = s.characters.FindByUID(s.ctx, "nobody")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestLiveQueryReportsAppends() {
	live := NewLiveQueryService(s.conn)
	defer live.Close()

	var mu sync.Mutex
	var actions []LiveQueryAction
	_, err := live.Subscribe(s.ctx, messageTable, func(ctx context.Context, table string, action LiveQueryAction, data any) {
		mu.Lock()
		defer mu.Unlock()
		actions = append(actions, action)
	})
	s.Require().NoError(err)

	_, err = s.messages.Append(s.ctx, domain.Message{Text: "ping", Type: domain.MessageChat, AuthorUID: "abc"})
	s.Require().NoError(err)

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(actions) > 0 && actions[0] == ActionCreate
	}, 5*time.Second, 50*time.Millisecond)
}
