package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RightsLevel is the privilege level of a user.
type RightsLevel string

// Possible rights levels, from least to most privileged.
const (
	RightsLevelNormal           RightsLevel = "normal"
	RightsLevelContentModerator RightsLevel = "content_moderator"
	RightsLevelEverything       RightsLevel = "everything"
)

// ParseRightsLevel converts a stored or configured value into a RightsLevel.
func ParseRightsLevel(s string) (RightsLevel, error) {
	level := RightsLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", ErrInvalidRightsLevel
	}
	return level, nil
}

// IsValid reports whether l is a known rights level.
func (l RightsLevel) IsValid() bool {
	switch l {
	case RightsLevelNormal, RightsLevelContentModerator, RightsLevelEverything:
		return true
	default:
		return false
	}
}

// Principal is a user as seen by the authorization checks.
type Principal struct {
	UserID      uuid.UUID   `json:"user_id"`
	RightsLevel RightsLevel `json:"rights_level"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NormalPrincipal returns the principal assumed for users with no stored rights.
func NormalPrincipal(userID uuid.UUID) *Principal {
	return &Principal{UserID: userID, RightsLevel: RightsLevelNormal}
}

// IsAtLeastModerator reports whether the principal may work the moderation queue.
func (p *Principal) IsAtLeastModerator() bool {
	return p != nil && (p.RightsLevel == RightsLevelContentModerator || p.RightsLevel == RightsLevelEverything)
}

// IsFullModerator reports whether the principal holds every right.
func (p *Principal) IsFullModerator() bool {
	return p != nil && p.RightsLevel == RightsLevelEverything
}
