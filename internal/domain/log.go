package domain

// Log is an ordered snapshot of the table log, oldest first.
type Log []Message

// LastAction returns the most recent action message.
func (l Log) LastAction() (Message, bool) {
	return l.findLast(func(m Message) bool { return m.Type == MessageAction })
}

// LatestRequest returns the most recent request targeting uid, resolved or not.
func (l Log) LatestRequest(uid string) (Message, bool) {
	return l.findLast(func(m Message) bool { return m.Targets(uid) })
}

// PendingRequest returns the latest request targeting uid if it is still unresolved.
func (l Log) PendingRequest(uid string) (Message, bool) {
	m, ok := l.LatestRequest(uid)
	if !ok || !m.IsUnresolved() {
		return Message{}, false
	}
	return m, true
}

func (l Log) findLast(match func(Message) bool) (Message, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if match(l[i]) {
			return l[i], true
		}
	}
	return Message{}, false
}
