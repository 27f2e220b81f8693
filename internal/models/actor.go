package models

// Role discriminates the kinds of actors calling into the service.
type Role string

// Role constants.
const (
	RoleAdmin    Role = "admin"
	RoleReviewer Role = "reviewer"
)

// Actor is the identity behind a request. It is implemented by Admin and
// ReviewerActor only; callers dispatch on the concrete type.
type Actor interface {
	ActorID() string
	Role() Role
	isActor()
}

// Admin is a second-line moderator with full access.
type Admin struct {
	ID string
}

// ActorID implements Actor.
func (a Admin) ActorID() string { return a.ID }

// Role implements Actor.
func (a Admin) Role() Role { return RoleAdmin }

func (Admin) isActor() {}

// ReviewerActor is a first-line reviewer acting on their own queue.
type ReviewerActor struct {
	ID string
}

// ActorID implements Actor.
func (r ReviewerActor) ActorID() string { return r.ID }

// Role implements Actor.
func (r ReviewerActor) Role() Role { return RoleReviewer }

func (ReviewerActor) isActor() {}
