package domain

// User is the participant identity handed to the table by the sign-in layer.
// The engine only ever compares UIDs; DisplayName and PhotoURL are carried
// through to the messages a user authors.
type User struct {
	UID         string `json:"uid" validate:"required"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url"`
}

// Validate runs the struct tag checks for a User.
func (u *User) Validate() error {
	return validatorInstance.Struct(u)
}

// DMPredicate reports whether a uid belongs to the Dungeon Master.
type DMPredicate func(uid string) bool

// DMSet builds a DMPredicate from a fixed list of uids.
func DMSet(uids ...string) DMPredicate {
	set := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		if uid != "" {
			set[uid] = struct{}{}
		}
	}
	return func(uid string) bool {
		_, ok := set[uid]
		return ok
	}
}
