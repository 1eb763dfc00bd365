package model

// Actor is the single authenticated-actor abstraction the middleware and
// services inspect. Persistence models are translated into it at the
// boundary instead of being type-switched on.
type Actor interface {
	IsActive() bool
	IsBlocked() bool
	Email() string
}

type userActor struct {
	u *User
}

func (a userActor) IsActive() bool  { return a.u.IsActive }
func (a userActor) IsBlocked() bool { return a.u.IsBlocked }
func (a userActor) Email() string   { return a.u.Email }

// AsActor adapts the persisted User into the Actor interface.
func (u *User) AsActor() Actor {
	return userActor{u: u}
}
