package auth

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the identity extracted from a verified token.
type Principal struct {
	UserID      uuid.UUID
	IsSuperuser bool
	IsTeacher   bool
	IsStudent   bool
	Email       string
	ExpiresAt   time.Time
}

// Is reports whether p is the user id or a superuser.
func (p Principal) Is(userID uuid.UUID) bool {
	return p.IsSuperuser || p.UserID == userID
}

type Ownership int

const (
	Unauthorized Ownership = iota
	Viewer
	Owner
)

func (o Ownership) String() string {
	switch o {
	case Owner:
		return "owner"
	case Viewer:
		return "viewer"
	default:
		return "unauthorized"
	}
}

// Allowed is true for viewers and owners.
func (o Ownership) Allowed() bool {
	return o >= Viewer
}

// OwnershipFacts are the owner ids joined from file -> submission -> assignment.
type OwnershipFacts struct {
	SubmitterID       uuid.UUID `db:"submitter_id"`
	AssignmentOwnerID uuid.UUID `db:"assignment_owner_id"`
}

// Resolve decides how p relates to the resource described by facts.
// Superusers always get Viewer. The assignment owner wins over the submitter.
func Resolve(p Principal, facts OwnershipFacts) Ownership {
	switch {
	case p.IsSuperuser:
		return Viewer
	case p.UserID == facts.AssignmentOwnerID:
		return Owner
	case p.UserID == facts.SubmitterID:
		return Viewer
	default:
		return Unauthorized
	}
}
