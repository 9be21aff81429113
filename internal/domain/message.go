package domain

import (
	"time"
)

// MessageType distinguishes turn-consuming actions from free chat.
type MessageType string

const (
	MessageChat   MessageType = "chat"
	MessageAction MessageType = "action"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t == MessageChat || t == MessageAction
}

// Command is a DM slash-command as it was typed: the name without the leading
// slash and the raw whitespace-separated arguments.
type Command struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// Arg returns the i-th argument or the empty string.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Request marks a message as a command addressed to one character.
// Target, Command and Resolved only ever exist together.
type Request struct {
	Target   string  `json:"target"`
	Command  Command `json:"command"`
	Resolved bool    `json:"resolved"`
}

// Message is one entry of the shared table log. Apart from Request.Resolved
// flipping to true, a message never changes after it has been appended.
type Message struct {
	ID        string      `json:"id,omitempty"`
	Text      string      `json:"text"`
	Type      MessageType `json:"type"`
	AuthorUID string      `json:"uid"`
	PhotoURL  string      `json:"photoURL,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Private   bool        `json:"private,omitempty"`
	Request   *Request    `json:"request,omitempty"`
}

// IsRequest reports whether the message carries a request.
func (m Message) IsRequest() bool {
	return m.Request != nil
}

// Targets reports whether the message is a request addressed to uid.
func (m Message) Targets(uid string) bool {
	return m.Request != nil && m.Request.Target == uid
}

// IsUnresolved reports whether the message is a request still waiting to be resolved.
func (m Message) IsUnresolved() bool {
	return m.Request != nil && !m.Request.Resolved
}

// IsCommand reports whether the message is a request for the named command.
func (m Message) IsCommand(name string) bool {
	return m.Request != nil && m.Request.Command.Name == name
}

// MessageFilter selects messages for bulk deletion. A zero filter matches nothing.
type MessageFilter struct {
	Type MessageType
}

// Match reports whether m is selected by the filter.
func (f MessageFilter) Match(m Message) bool {
	return f.Type != "" && m.Type == f.Type
}
