package testutils

import (
	"github.com/nfrund/tavern/internal/domain"
)

// Participants used across the table tests.
var (
	DM      = domain.User{UID: "dm-uid", DisplayName: "Dungeon Master", PhotoURL: "https://example.com/dm.png"}
	Player1 = domain.User{UID: "abc", DisplayName: "Player One", PhotoURL: "https://example.com/p1.png"}
	Player2 = domain.User{UID: "def", DisplayName: "Player Two", PhotoURL: "https://example.com/p2.png"}
)

// IsDM recognises DM as the Dungeon Master.
var IsDM = domain.DMSet(DM.UID)

// Characters returns a fresh roster: player1 (str 18, 15/15 hp) and player2.
func Characters() []domain.Character {
	return []domain.Character{
		{UID: Player1.UID, Name: "player1", Str: 18, Dex: 8, Con: 6, Int: 24, Wis: 12, Cha: 10, HP: 15, MaxHP: 15},
		{UID: Player2.UID, Name: "player2", Str: 10, Dex: 14, Con: 12, Int: 10, Wis: 10, Cha: 16, HP: 12, MaxHP: 12},
	}
}

// Faces is a dice source that yields the queued faces in order, then 1s.
type Faces struct {
	queue []int
}

// NewFaces queues faces; each is returned as Intn's face-1 so the die shows it.
func NewFaces(faces ...int) *Faces {
	return &Faces{queue: faces}
}

// Push queues more faces.
func (f *Faces) Push(faces ...int) {
	f.queue = append(f.queue, faces...)
}

// Intn implements dice.Source.
func (f *Faces) Intn(n int) int {
	if len(f.queue) == 0 {
		return 0
	}
	face := f.queue[0]
	f.queue = f.queue[1:]
	if face < 1 || face > n {
		return 0
	}
	return face - 1
}
