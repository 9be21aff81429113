package command

import (
	"errors"
	"fmt"

	"github.com/nfrund/tavern/internal/dice"
	"github.com/nfrund/tavern/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultErrorPhotoURL is the avatar shown on private failure messages.
const DefaultErrorPhotoURL = "https://cdn-icons-png.flaticon.com/512/5219/5219070.png"

// Roller rolls a dice expression. *dice.Resolver satisfies it.
type Roller interface {
	RollExpression(expr string) (dice.Roll, error)
}

// Input is everything a command is validated against.
type Input struct {
	Text   string
	Author domain.User
	Roster domain.Roster
	Log    domain.Log
}

// Builder turns DM command text into table messages.
type Builder struct {
	specs         map[string]Spec
	order         []string
	roller        Roller
	errorPhotoURL string
}

// Option configures a Builder.
type Option func(*Builder)

// WithErrorPhotoURL overrides the avatar used on failure messages.
func WithErrorPhotoURL(url string) Option {
	return func(b *Builder) {
		if url != "" {
			b.errorPhotoURL = url
		}
	}
}

// WithSpecs replaces the command table.
func WithSpecs(specs ...Spec) Option {
	return func(b *Builder) {
		b.specs = make(map[string]Spec, len(specs))
		b.order = b.order[:0]
		for _, s := range specs {
			if _, dup := b.specs[s.Name]; !dup {
				b.order = append(b.order, s.Name)
			}
			b.specs[s.Name] = s
		}
	}
}

// NewBuilder returns a Builder with the standard command table.
func NewBuilder(roller Roller, opts ...Option) *Builder {
	b := &Builder{
		roller:        roller,
		errorPhotoURL: DefaultErrorPhotoURL,
	}
	WithSpecs(DefaultSpecs()...)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Names lists the commands the builder knows, in table order.
func (b *Builder) Names() []string {
	return append([]string(nil), b.order...)
}

// Build never fails: a valid command yields its chat message, and a
// validation failure yields a private "!!! reason !!!" chat for the DM.
func (b *Builder) Build(in Input) domain.Message {
	msg, err := b.Validate(in)
	if err != nil {
		var cmdErr *Error
		if !errors.As(err, &cmdErr) {
			cmdErr = fail(ErrUnknownCommand, err.Error())
		}
		return b.ErrorMessage(in.Author, cmdErr)
	}
	return msg
}

// Validate runs the checks in their fixed order and renders the message.
// The first failing check is returned as an *Error.
func (b *Builder) Validate(in Input) (domain.Message, error) {
	cmd := Parse(in.Text)

	spec, ok := b.specs[cmd.Name]
	if !ok {
		return domain.Message{}, fail(ErrUnknownCommand, fmt.Sprintf("Unknown command: %s", cmd.Name))
	}

	if len(cmd.Args) != spec.Arity {
		return domain.Message{}, fail(ErrArityMismatch,
			fmt.Sprintf("Wrong number of arguments. Correct syntax: %s", spec.Syntax))
	}

	call := Call{Command: cmd, Input: in, builder: b}

	if spec.Targeted {
		name := cmd.Arg(0)
		target, found := in.Roster.FindByName(name)
		if !found {
			return domain.Message{}, fail(ErrInvalidTarget, fmt.Sprintf("Unknown player: %s", name))
		}
		if target.IsDead() {
			return domain.Message{}, fail(ErrInvalidTarget, fmt.Sprintf("Invalid target: %s", name))
		}
		call.Target = target
	}

	for _, check := range spec.Checks {
		if err := check(cmd); err != nil {
			return domain.Message{}, err
		}
	}

	if spec.Targeted {
		if _, pending := in.Log.PendingRequest(call.Target.UID); pending {
			return domain.Message{}, fail(ErrRequestPending,
				fmt.Sprintf("%s has another request pending", call.Target.Name))
		}
	}

	text, err := spec.Render(call)
	if err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		Text:      text,
		Type:      domain.MessageChat,
		AuthorUID: in.Author.UID,
		PhotoURL:  in.Author.PhotoURL,
	}
	if spec.Targeted {
		msg.Request = &domain.Request{
			Target:  call.Target.UID,
			Command: cmd,
		}
	}
	return msg, nil
}

// ErrorMessage wraps a failure as the private chat shown only to its author.
func (b *Builder) ErrorMessage(author domain.User, err *Error) domain.Message {
	return domain.Message{
		Text:      fmt.Sprintf("!!! %s !!!", err.Reason),
		Type:      domain.MessageChat,
		AuthorUID: author.UID,
		PhotoURL:  b.errorPhotoURL,
		Private:   true,
	}
}

// Upper upper-cases s for message templates. Casers hold state, so each call gets its own.
func (b *Builder) Upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// Roll rolls expr with the builder's roller.
func (b *Builder) Roll(expr string) (dice.Roll, error) {
	return b.roller.RollExpression(expr)
}
