package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nfrund/tavern/internal/command"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/middleware"
	"github.com/nfrund/tavern/internal/pubsub"
)

// DefaultMessageLimit is how many of the most recent log entries are read.
const DefaultMessageLimit = 100

// Dice is the randomness the engine needs. *dice.Resolver satisfies it.
type Dice interface {
	command.Roller
	D20() int
}

// Dependencies are the collaborators an Engine is built from.
// Publisher may be nil, in which case no events are emitted.
type Dependencies struct {
	Log           domain.MessageLog
	Characters    domain.CharacterRepository
	Dice          Dice
	IsDM          domain.DMPredicate
	Publisher     pubsub.Publisher
	Limit         int
	ErrorPhotoURL string
}

// Engine coordinates one table: it validates submissions against the
// current log, writes the results, and applies request effects.
type Engine struct {
	log        domain.MessageLog
	characters domain.CharacterRepository
	dice       Dice
	isDM       domain.DMPredicate
	publisher  pubsub.Publisher
	limit      int
	builder    *command.Builder

	// Serializes effect application per observing uid.
	resolving sync.Map
}

// New validates deps and returns an Engine.
func New(deps Dependencies) (*Engine, error) {
	switch {
	case deps.Log == nil:
		return nil, fmt.Errorf("%w: message log", ErrMissingDependency)
	case deps.Characters == nil:
		return nil, fmt.Errorf("%w: character repository", ErrMissingDependency)
	case deps.Dice == nil:
		return nil, fmt.Errorf("%w: dice", ErrMissingDependency)
	case deps.IsDM == nil:
		return nil, fmt.Errorf("%w: DM predicate", ErrMissingDependency)
	}

	limit := deps.Limit
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	return &Engine{
		log:        deps.Log,
		characters: deps.Characters,
		dice:       deps.Dice,
		isDM:       deps.IsDM,
		publisher:  deps.Publisher,
		limit:      limit,
		builder:    command.NewBuilder(deps.Dice, command.WithErrorPhotoURL(deps.ErrorPhotoURL)),
	}, nil
}

// IsDM reports whether uid is the Dungeon Master.
func (e *Engine) IsDM(uid string) bool {
	return e.isDM(uid)
}

// Commands lists the DM commands in table order.
func (e *Engine) Commands() []string {
	return e.builder.Names()
}

// Snapshot reads the current log and roster.
func (e *Engine) Snapshot(ctx context.Context) (domain.Log, domain.Roster, error) {
	msgs, err := e.log.QueryOrdered(ctx, e.limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query log: %w", err)
	}
	roster, err := e.characters.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list characters: %w", err)
	}
	return domain.Log(msgs), roster, nil
}

// Submit appends a chat or action from user. A DM action starting with the
// command marker is run through the command table; its result, success or
// private failure, is always a chat. Appending an action first purges the chat.
func (e *Engine) Submit(ctx context.Context, user domain.User, kind domain.MessageType, text string) (*domain.Message, error) {
	logger := middleware.FromContext(ctx)

	text = strings.TrimSpace(text)
	if err := CanSubmitChat(text); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	msg := domain.Message{
		Text:      text,
		Type:      kind,
		AuthorUID: user.UID,
		PhotoURL:  user.PhotoURL,
	}

	if kind == domain.MessageAction {
		log, roster, err := e.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if err := CanSubmitAction(log, roster, user, e.isDM); err != nil {
			logger.Info("Action rejected", "uid", user.UID, "reason", err)
			return nil, err
		}
		if e.isDM(user.UID) && command.HasMarker(text) {
			msg = e.builder.Build(command.Input{Text: text, Author: user, Roster: roster, Log: log})
		}
	}

	if msg.Type == domain.MessageAction {
		if err := e.log.DeleteWhere(ctx, domain.MessageFilter{Type: domain.MessageChat}); err != nil {
			return nil, fmt.Errorf("purge chat: %w", err)
		}
		emit(ctx, e, ChatsPurged, user.UID, ChatsPurgedEvent{EventMeta: newMeta(), TriggeredBy: user.UID})
	}

	stored, err := e.log.Append(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	logger.Info("Message appended", "uid", user.UID, "type", stored.Type, "private", stored.Private, "request", stored.IsRequest())
	emit(ctx, e, MessageAppended, user.UID, MessageAppendedEvent{EventMeta: newMeta(), Message: *stored})
	emit(ctx, e, LogChanged, user.UID, NewLogChanged("engine", "append"))
	return stored, nil
}

// Roll resolves the user's pending skill check or roll request and appends the outcome.
func (e *Engine) Roll(ctx context.Context, user domain.User) (*domain.Message, error) {
	log, roster, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := log.PendingRequest(user.UID)
	if !ok || !(req.IsCommand(command.NameSkillCheck) || req.IsCommand(command.NameAskRoll)) {
		return nil, ErrNoPendingRoll
	}
	character, ok := roster.FindByUID(user.UID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacter, user.UID)
	}

	var text string
	if req.IsCommand(command.NameSkillCheck) {
		text, err = e.skillCheck(character, req.Request.Command)
	} else {
		text, err = e.askRoll(character, req.Request.Command)
	}
	if err != nil {
		return nil, err
	}

	if err := e.resolve(ctx, user.UID, req); err != nil {
		return nil, err
	}

	stored, err := e.log.Append(ctx, domain.Message{
		Text:      text,
		Type:      domain.MessageChat,
		AuthorUID: user.UID,
		PhotoURL:  user.PhotoURL,
	})
	if err != nil {
		return nil, fmt.Errorf("append roll: %w", err)
	}

	middleware.FromContext(ctx).Info("Request rolled", "uid", user.UID, "command", req.Request.Command.Name, "request_id", req.ID)
	emit(ctx, e, MessageAppended, user.UID, MessageAppendedEvent{EventMeta: newMeta(), Message: *stored})
	emit(ctx, e, LogChanged, user.UID, NewLogChanged("engine", "roll"))
	return stored, nil
}

func (e *Engine) skillCheck(c domain.Character, cmd domain.Command) (string, error) {
	stat, ok := domain.ParseStat(cmd.Arg(1))
	if !ok {
		return "", fmt.Errorf("%w: stored request has stat %q", ErrCorruptRequest, cmd.Arg(1))
	}
	dc, err := strconv.Atoi(cmd.Arg(2))
	if err != nil {
		return "", fmt.Errorf("%w: stored request has DC %q", ErrCorruptRequest, cmd.Arg(2))
	}

	die := e.dice.D20()
	mod := c.Modifier(stat)
	result := die + mod
	outcome := "failure"
	if result >= dc {
		outcome = "success"
	}
	return fmt.Sprintf("%s rolled a %d!\n%d + %d = %d\nIt's a %s!",
		e.builder.Upper(c.Name), die, die, mod, result, outcome), nil
}

func (e *Engine) askRoll(c domain.Character, cmd domain.Command) (string, error) {
	expr := cmd.Arg(1)
	roll, err := e.dice.RollExpression(expr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptRequest, err)
	}
	return fmt.Sprintf("%s rolled %s!\n%s = %d", e.builder.Upper(c.Name), expr, roll.Breakdown(), roll.Total), nil
}

// Observe returns the table as user sees it. Before reading, it applies the
// effect of a pending hit or heal addressed to user.
func (e *Engine) Observe(ctx context.Context, user domain.User) (*View, error) {
	unlock := e.lockResolution(user.UID)
	defer unlock()

	log, roster, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	applied, err := e.applyPending(ctx, user, log, roster)
	if err != nil {
		return nil, err
	}
	if applied {
		if log, roster, err = e.Snapshot(ctx); err != nil {
			return nil, err
		}
	}

	view := BuildView(log, roster, user, e.isDM)
	return &view, nil
}

func (e *Engine) lockResolution(uid string) func() {
	v, _ := e.resolving.LoadOrStore(uid, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// applyPending applies a pending hit or heal targeting user and reports
// whether anything was written.
func (e *Engine) applyPending(ctx context.Context, user domain.User, log domain.Log, roster domain.Roster) (bool, error) {
	logger := middleware.FromContext(ctx)

	req, ok := log.PendingRequest(user.UID)
	if !ok || !(req.IsCommand(command.NameHit) || req.IsCommand(command.NameHeal)) {
		return false, nil
	}
	character, ok := roster.FindByUID(user.UID)
	if !ok {
		logger.Warn("Pending request for a uid without a character", "uid", user.UID, "request_id", req.ID)
		return false, nil
	}

	amount, err := strconv.Atoi(req.Request.Command.Arg(1))
	if err != nil {
		logger.Warn("Resolving request with an unreadable amount", "request_id", req.ID, "error", err)
		return true, e.resolve(ctx, user.UID, req)
	}

	hp := character.Heal(amount)
	if req.IsCommand(command.NameHit) {
		hp = character.Damage(amount)
	}

	if err := e.characters.UpdateHP(ctx, character.ID, hp); err != nil {
		return false, fmt.Errorf("update hp: %w", err)
	}
	if err := e.resolve(ctx, user.UID, req); err != nil {
		return false, err
	}

	character.HP = hp
	logger.Info("Request applied", "uid", user.UID, "command", req.Request.Command.Name, "hp", hp)
	emit(ctx, e, CharacterUpdated, user.UID, CharacterUpdatedEvent{
		EventMeta:   newMeta(),
		CharacterID: character.ID,
		UID:         character.UID,
		HP:          hp,
		Dead:        character.IsDead(),
	})

	if req.IsCommand(command.NameHit) && character.IsDead() {
		stored, err := e.log.Append(ctx, domain.Message{
			Text:      fmt.Sprintf("%s, you are dead.", e.builder.Upper(character.Name)),
			Type:      domain.MessageChat,
			AuthorUID: user.UID,
			PhotoURL:  user.PhotoURL,
		})
		if err != nil {
			return true, fmt.Errorf("append death notice: %w", err)
		}
		emit(ctx, e, MessageAppended, user.UID, MessageAppendedEvent{EventMeta: newMeta(), Message: *stored})
	}

	emit(ctx, e, LogChanged, user.UID, NewLogChanged("engine", "resolve"))
	return true, nil
}

func (e *Engine) resolve(ctx context.Context, uid string, req domain.Message) error {
	if err := e.log.MarkResolved(ctx, req.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoPendingRoll, req.ID)
		}
		return fmt.Errorf("mark resolved: %w", err)
	}
	emit(ctx, e, RequestResolved, uid, RequestResolvedEvent{
		EventMeta: newMeta(),
		MessageID: req.ID,
		Target:    req.Request.Target,
		Command:   req.Request.Command.Name,
	})
	return nil
}

// emit publishes payload if a publisher is configured. Failures are logged, not returned.
func emit[T any](ctx context.Context, e *Engine, event pubsub.Event[T], uid string, payload T) {
	if e.publisher == nil {
		return
	}
	if err := pubsub.Publish(ctx, e.publisher, event, uid, payload); err != nil {
		middleware.FromContext(ctx).Error("Failed to publish event", "topic", event.Name(), "error", err)
	}
}
