// Package topicmgr keeps the catalogue of pub/sub topics the application
// publishes, so that tooling can list them and typos fail at startup.
//
// Topics are declared once, normally through pubsub.NewEvent:
//
//	var MessageAppended = pubsub.NewEvent[MessageAppendedEvent](
//		"table.message.appended", "A message was appended to the table log")
//
// and can be listed afterwards:
//
//	for _, t := range topicmgr.Default().List() { ... }
package topicmgr

import (
	"errors"
	"fmt"
	"regexp"
)

// Scope says whether a topic belongs to the framework or to a module.
type Scope string

const (
	ScopeFramework Scope = "framework"
	ScopeModule    Scope = "module"
)

var (
	ErrInvalidTopicName = errors.New("invalid topic name")
	ErrDuplicateTopic   = errors.New("topic already registered")
	ErrTopicNotFound    = errors.New("topic not found")
)

// Topic names are dot-separated lowercase segments, e.g. "table.log.changed".
var topicNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// Topic describes a registered topic.
type Topic interface {
	Name() string
	Module() string
	Description() string
	Pattern() string
	Scope() Scope
	Metadata() map[string]interface{}
}

// TopicConfig is the declaration used to define a topic.
type TopicConfig struct {
	Name        string
	Module      string
	Description string
	Pattern     string
	Example     string
	Metadata    map[string]interface{}
	Scope       Scope
}

type definedTopic struct {
	cfg TopicConfig
}

func (t *definedTopic) Name() string                     { return t.cfg.Name }
func (t *definedTopic) Module() string                   { return t.cfg.Module }
func (t *definedTopic) Description() string              { return t.cfg.Description }
func (t *definedTopic) Pattern() string                  { return t.cfg.Pattern }
func (t *definedTopic) Scope() Scope                     { return t.cfg.Scope }
func (t *definedTopic) Metadata() map[string]interface{} { return t.cfg.Metadata }

// String implements fmt.Stringer.
func (t *definedTopic) String() string { return t.cfg.Name }

// DefineFramework creates a topic owned by core services.
func DefineFramework(cfg TopicConfig) Topic {
	cfg.Scope = ScopeFramework
	cfg.Module = ""
	return &definedTopic{cfg: cfg}
}

// DefineModule creates a topic owned by an application module.
func DefineModule(cfg TopicConfig) Topic {
	cfg.Scope = ScopeModule
	return &definedTopic{cfg: cfg}
}

// Validate checks the shape of a topic definition.
func Validate(t Topic) error {
	if t == nil {
		return fmt.Errorf("%w: nil topic", ErrInvalidTopicName)
	}
	if !topicNamePattern.MatchString(t.Name()) {
		return fmt.Errorf("%w: %q", ErrInvalidTopicName, t.Name())
	}
	if t.Scope() == ScopeModule && t.Module() == "" {
		return fmt.Errorf("%w: module topic %q has no module", ErrInvalidTopicName, t.Name())
	}
	return nil
}
