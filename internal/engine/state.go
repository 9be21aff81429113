package engine

import (
	"strings"

	"github.com/nfrund/tavern/internal/command"
	"github.com/nfrund/tavern/internal/domain"
)

// Phase is whose turn it is to submit the next action. It is never stored;
// it is always derived from the log.
type Phase string

const (
	PhaseDM      Phase = "DM_TURN"
	PhasePlayers Phase = "PLAYERS_TURN"
)

// TurnPhase looks only at the author of the most recent action.
func TurnPhase(log domain.Log, isDM domain.DMPredicate) Phase {
	if lastActionByDM(log, isDM) {
		return PhasePlayers
	}
	return PhaseDM
}

// CanSubmitAction reports why user may not submit an action right now, or nil.
func CanSubmitAction(log domain.Log, roster domain.Roster, user domain.User, isDM domain.DMPredicate) error {
	if isDM(user.UID) {
		return nil
	}
	if c, ok := roster.FindByUID(user.UID); ok && c.IsDead() {
		return ErrCharacterDead
	}
	if !lastActionByDM(log, isDM) {
		return ErrNotYourTurn
	}
	return nil
}

// CanSubmitChat rejects empty or whitespace-only text.
func CanSubmitChat(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Visible filters out private messages that neither belong to nor target the viewer.
func Visible(log domain.Log, viewerUID string) domain.Log {
	out := make(domain.Log, 0, len(log))
	for _, m := range log {
		if !m.Private || m.AuthorUID == viewerUID || m.Targets(viewerUID) {
			out = append(out, m)
		}
	}
	return out
}

// ShowRollButton reports whether uid has an unresolved skill check or roll request.
// Locating the request and gating on its resolution are separate steps.
func ShowRollButton(log domain.Log, uid string) bool {
	req, ok := log.LatestRequest(uid)
	if !ok || req.Request.Resolved {
		return false
	}
	return req.IsCommand(command.NameSkillCheck) || req.IsCommand(command.NameAskRoll)
}

func lastActionByDM(log domain.Log, isDM domain.DMPredicate) bool {
	last, ok := log.LastAction()
	return ok && isDM(last.AuthorUID)
}
