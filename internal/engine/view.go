package engine

import "github.com/nfrund/tavern/internal/domain"

// View is everything a participant's screen is rendered from.
type View struct {
	Viewer  domain.User `json:"viewer"`
	IsDM    bool        `json:"is_dm"`
	Phase   Phase       `json:"phase"`
	Players []string    `json:"players"`

	Messages domain.Log `json:"messages"`

	CanChat bool `json:"can_chat"`
	CanAct  bool `json:"can_act"`
	// ActBlocked explains why CanAct is false.
	ActBlocked string `json:"act_blocked,omitempty"`

	ShowRoll bool            `json:"show_roll"`
	Pending  *domain.Message `json:"pending,omitempty"`
	Sheet    *Sheet          `json:"sheet,omitempty"`
}

// Sheet is the viewer's character with derived ability modifiers.
type Sheet struct {
	Character domain.Character    `json:"character"`
	Modifiers map[domain.Stat]int `json:"modifiers"`
	Dead      bool                `json:"dead"`
}

// NewSheet derives the modifiers for c.
func NewSheet(c domain.Character) *Sheet {
	mods := make(map[domain.Stat]int, len(domain.Stats))
	for _, s := range domain.Stats {
		mods[s] = c.Modifier(s)
	}
	return &Sheet{Character: c, Modifiers: mods, Dead: c.IsDead()}
}

// BuildView derives the view for user from a log snapshot. It does not write.
func BuildView(log domain.Log, roster domain.Roster, user domain.User, isDM domain.DMPredicate) View {
	v := View{
		Viewer:   user,
		IsDM:     isDM(user.UID),
		Phase:    TurnPhase(log, isDM),
		Players:  roster.Names(),
		Messages: Visible(log, user.UID),
		CanChat:  true,
		ShowRoll: ShowRollButton(log, user.UID),
	}

	if err := CanSubmitAction(log, roster, user, isDM); err != nil {
		v.ActBlocked = err.Error()
	} else {
		v.CanAct = true
	}

	if pending, ok := log.PendingRequest(user.UID); ok {
		v.Pending = &pending
	}
	if c, ok := roster.FindByUID(user.UID); ok {
		v.Sheet = NewSheet(c)
	}
	return v
}
