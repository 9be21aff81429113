package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is shared so struct metadata is cached once.
var validatorInstance = validator.New()

// Stat names one of the six ability scores.
type Stat string

const (
	StatStr Stat = "str"
	StatDex Stat = "dex"
	StatCon Stat = "con"
	StatInt Stat = "int"
	StatWis Stat = "wis"
	StatCha Stat = "cha"
)

// Stats lists the abilities in character sheet order.
var Stats = []Stat{StatStr, StatDex, StatCon, StatInt, StatWis, StatCha}

// ParseStat matches s against the six abilities, ignoring case.
func ParseStat(s string) (Stat, bool) {
	for _, st := range Stats {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// Character is a player's sheet.
type Character struct {
	ID    string `json:"id,omitempty"`
	UID   string `json:"uid" validate:"required"`
	Name  string `json:"name" validate:"required,max=64"`
	Str   int    `json:"str" validate:"gte=1"`
	Dex   int    `json:"dex" validate:"gte=1"`
	Con   int    `json:"con" validate:"gte=1"`
	Int   int    `json:"int" validate:"gte=1"`
	Wis   int    `json:"wis" validate:"gte=1"`
	Cha   int    `json:"cha" validate:"gte=1"`
	HP    int    `json:"hp" validate:"ltefield=MaxHP"`
	MaxHP int    `json:"maxhp" validate:"gte=1"`
}

// Validate runs the struct tag checks for a Character.
func (c *Character) Validate() error {
	return validatorInstance.Struct(c)
}

// Score returns the raw ability score for s.
func (c Character) Score(s Stat) int {
	switch s {
	case StatStr:
		return c.Str
	case StatDex:
		return c.Dex
	case StatCon:
		return c.Con
	case StatInt:
		return c.Int
	case StatWis:
		return c.Wis
	case StatCha:
		return c.Cha
	}
	return 0
}

// Modifier returns the ability modifier for s.
func (c Character) Modifier(s Stat) int {
	return AbilityModifier(c.Score(s))
}

// IsDead reports whether the character is out of hit points.
func (c Character) IsDead() bool {
	return c.HP <= 0
}

// Damage returns the hit points left after taking amount damage.
// The result is not clamped and may be negative. Negative amounts count as 0.
func (c Character) Damage(amount int) int {
	return c.HP - max(amount, 0)
}

// Heal returns the hit points after healing amount, capped at MaxHP.
// Negative amounts count as 0.
func (c Character) Heal(amount int) int {
	return min(c.HP+max(amount, 0), c.MaxHP)
}

// AbilityModifier is floor((score-10)/2).
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// Roster is the set of characters seated at the table.
type Roster []Character

// FindByName looks a character up by name, ignoring case.
func (r Roster) FindByName(name string) (Character, bool) {
	for _, c := range r {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Character{}, false
}

// FindByUID looks a character up by its owner's uid.
func (r Roster) FindByUID(uid string) (Character, bool) {
	for _, c := range r {
		if c.UID == uid {
			return c, true
		}
	}
	return Character{}, false
}

// Names returns the character names in roster order.
func (r Roster) Names() []string {
	names := make([]string, 0, len(r))
	for _, c := range r {
		names = append(names, c.Name)
	}
	return names
}
