package database

import (
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/tavern/internal/domain"
)

const (
	messageTable   = "message"
	characterTable = "character"
)

// parseRecordID turns "table:key" back into a RecordID.
func parseRecordID(id, table string) (surrealmodels.RecordID, error) {
	tb, key, ok := strings.Cut(id, ":")
	if !ok || tb != table || key == "" {
		return surrealmodels.RecordID{}, fmt.Errorf("%w: %q is not a %s id", ErrInvalidID, id, table)
	}
	key = strings.TrimSuffix(strings.TrimPrefix(key, "⟨"), "⟩")
	return surrealmodels.NewRecordID(table, key), nil
}

func recordIDString(id *surrealmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%s:%v", id.Table, id.ID)
}

type commandRecord struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// messageRecord is the stored shape of a message. The request fields are
// flat and optional, matching the documents the table has always used.
type messageRecord struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Text      string                        `json:"text"`
	Type      string                        `json:"type"`
	UID       string                        `json:"uid"`
	PhotoURL  string                        `json:"photoURL,omitempty"`
	Private   bool                          `json:"private"`
	Target    *string                       `json:"target,omitempty"`
	Command   *commandRecord                `json:"command,omitempty"`
	Resolved  *bool                         `json:"resolved,omitempty"`
	CreatedAt *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
}

func newMessageRecord(m domain.Message) messageRecord {
	rec := messageRecord{
		Text:     m.Text,
		Type:     string(m.Type),
		UID:      m.AuthorUID,
		PhotoURL: m.PhotoURL,
		Private:  m.Private,
	}
	if m.Request != nil {
		target := m.Request.Target
		resolved := m.Request.Resolved
		args := m.Request.Command.Args
		if args == nil {
			args = []string{}
		}
		rec.Target = &target
		rec.Resolved = &resolved
		rec.Command = &commandRecord{Name: m.Request.Command.Name, Args: args}
	}
	return rec
}

func (r messageRecord) toDomain() domain.Message {
	m := domain.Message{
		ID:        recordIDString(r.ID),
		Text:      r.Text,
		Type:      domain.MessageType(r.Type),
		AuthorUID: r.UID,
		PhotoURL:  r.PhotoURL,
		Private:   r.Private,
	}
	if r.CreatedAt != nil {
		m.CreatedAt = r.CreatedAt.Time.UTC()
	}
	if r.Target != nil && r.Command != nil {
		m.Request = &domain.Request{
			Target:  *r.Target,
			Command: domain.Command{Name: r.Command.Name, Args: append([]string{}, r.Command.Args...)},
		}
		if r.Resolved != nil {
			m.Request.Resolved = *r.Resolved
		}
	}
	return m
}

type characterRecord struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	UID       string                        `json:"uid"`
	Name      string                        `json:"name"`
	Str       int                           `json:"str"`
	Dex       int                           `json:"dex"`
	Con       int                           `json:"con"`
	Int       int                           `json:"int"`
	Wis       int                           `json:"wis"`
	Cha       int                           `json:"cha"`
	HP        int                           `json:"hp"`
	MaxHP     int                           `json:"maxhp"`
	UpdatedAt *surrealmodels.CustomDateTime `json:"updatedAt,omitempty"`
}

func newCharacterRecord(c domain.Character) characterRecord {
	return characterRecord{
		UID: c.UID, Name: c.Name,
		Str: c.Str, Dex: c.Dex, Con: c.Con, Int: c.Int, Wis: c.Wis, Cha: c.Cha,
		HP: c.HP, MaxHP: c.MaxHP,
		UpdatedAt: &surrealmodels.CustomDateTime{Time: time.Now().UTC()},
	}
}

func (r characterRecord) toDomain() domain.Character {
	return domain.Character{
		ID: recordIDString(r.ID), UID: r.UID, Name: r.Name,
		Str: r.Str, Dex: r.Dex, Con: r.Con, Int: r.Int, Wis: r.Wis, Cha: r.Cha,
		HP: r.HP, MaxHP: r.MaxHP,
	}
}

// content is the field map written for a record; the id is never part of it.
func (r characterRecord) content() map[string]any {
	return map[string]any{
		"uid": r.UID, "name": r.Name,
		"str": r.Str, "dex": r.Dex, "con": r.Con, "int": r.Int, "wis": r.Wis, "cha": r.Cha,
		"hp": r.HP, "maxhp": r.MaxHP,
		"updatedAt": r.UpdatedAt,
	}
}
