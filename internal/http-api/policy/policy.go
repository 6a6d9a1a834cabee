// Package policy decides whether an actor may perform an action on a
// resource. Decisions depend only on the actor's resolved permission level
// and, for object checks, on authorship.
package policy

import (
	"errors"

	"yamdb/internal/http-api/models"
)

var (
	// ErrUnauthenticated is returned when an anonymous actor is denied.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	// ErrForbidden is returned when an authenticated actor is denied.
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// Level is the ordered permission level of an actor.
type Level int

const (
	LevelAnonymous Level = iota
	LevelUser
	LevelModerator
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelUser:
		return "user"
	case LevelModerator:
		return "moderator"
	case LevelAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// ResolveLevel maps a stored role and staff flag onto a Level. Staff always
// resolves to admin. Unknown roles get the lowest authenticated level.
func ResolveLevel(role string, isStaff bool) Level {
	if isStaff {
		return LevelAdmin
	}
	switch role {
	case models.RoleAdmin:
		return LevelAdmin
	case models.RoleModerator:
		return LevelModerator
	default:
		return LevelUser
	}
}

// Actor is the identity a request runs as.
type Actor struct {
	UserID   string
	Username string
	Level    Level
}

func Anonymous() Actor {
	return Actor{Level: LevelAnonymous}
}

// ActorFor builds the actor for a stored user.
func ActorFor(u *models.User) Actor {
	return Actor{
		UserID:   u.ID,
		Username: u.Username,
		Level:    ResolveLevel(u.Role, u.IsStaff),
	}
}

func (a Actor) Authenticated() bool {
	return a.Level > LevelAnonymous
}

func (a Actor) IsAdmin() bool {
	return a.Level >= LevelAdmin
}

type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "read"
	}
}

// Safe reports whether the action has no side effects.
func (a Action) Safe() bool {
	return a == ActionRead
}

// Policy is evaluated once per request by Allow and, for operations that
// target an existing record, again by AllowObject with that record's author.
type Policy interface {
	Allow(actor Actor, action Action) error
	AllowObject(actor Actor, action Action, authorID string) error
}

// deny picks the error matching the actor's authentication state.
func deny(actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// PublicReadAdminWrite lets anyone read and only admins write.
type PublicReadAdminWrite struct{}

func (PublicReadAdminWrite) Allow(actor Actor, action Action) error {
	if action.Safe() || actor.IsAdmin() {
		return nil
	}
	return deny(actor)
}

func (p PublicReadAdminWrite) AllowObject(actor Actor, action Action, _ string) error {
	return p.Allow(actor, action)
}

// AuthorModerationWrite lets anyone read and any authenticated actor create.
// Changing an existing record needs authorship or moderator rights.
type AuthorModerationWrite struct{}

func (AuthorModerationWrite) Allow(actor Actor, action Action) error {
	if action.Safe() || actor.Authenticated() {
		return nil
	}
	return deny(actor)
}

func (p AuthorModerationWrite) AllowObject(actor Actor, action Action, authorID string) error {
	if err := p.Allow(actor, action); err != nil {
		return err
	}
	if action.Safe() || action == ActionCreate {
		return nil
	}
	if actor.Level >= LevelModerator || (authorID != "" && actor.UserID == authorID) {
		return nil
	}
	return ErrForbidden
}

// AdminOnly restricts every action, reads included, to admins.
type AdminOnly struct{}

func (AdminOnly) Allow(actor Actor, _ Action) error {
	if actor.IsAdmin() {
		return nil
	}
	return deny(actor)
}

func (p AdminOnly) AllowObject(actor Actor, action Action, _ string) error {
	return p.Allow(actor, action)
}

// Authenticated admits any authenticated actor.
type Authenticated struct{}

func (Authenticated) Allow(actor Actor, _ Action) error {
	if actor.Authenticated() {
		return nil
	}
	return ErrUnauthenticated
}

func (p Authenticated) AllowObject(actor Actor, action Action, _ string) error {
	return p.Allow(actor, action)
}
