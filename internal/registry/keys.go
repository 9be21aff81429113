package registry

import (
	"github.com/nfrund/tavern/internal/database"
	"github.com/nfrund/tavern/internal/dice"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/engine"
	"github.com/nfrund/tavern/internal/pubsub"
)

// Shared services.
const (
	PublisherKey  Key[pubsub.Publisher]  = "core.publisher"
	SubscriberKey Key[pubsub.Subscriber] = "core.subscriber"

	MessageLogKey Key[domain.MessageLog]          = "table.message_log"
	CharactersKey Key[domain.CharacterRepository] = "table.characters"
	DiceKey       Key[*dice.Resolver]             = "table.dice"
	EngineKey     Key[*engine.Engine]             = "table.engine"

	// LiveQueryKey is only set when the server runs on SurrealDB.
	LiveQueryKey Key[*database.LiveQueryService] = "database.live_query"
)
