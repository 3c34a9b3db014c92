package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Member is a platform participant who can recruit others and receive
// override earnings. The three ancestor columns are the recruiter lineage
// snapshot captured at creation; they are written once and never updated.
type Member struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"not null" json:"name"`
	Email        string            `gorm:"not null;uniqueIndex:ux_members_email" json:"email"`
	ReferralCode string            `gorm:"not null;uniqueIndex:ux_members_referral_code" json:"referral_code"`
	AncestorL1   *snowflake.ID     `gorm:"index" json:"ancestor_l1,omitempty"`
	AncestorL2   *snowflake.ID     `gorm:"index" json:"ancestor_l2,omitempty"`
	AncestorL3   *snowflake.ID     `gorm:"index" json:"ancestor_l3,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

// Ancestors returns the snapshot ordered by level. Index 0 is the direct
// recruiter; a nil entry means fewer generations exist at that depth.
func (m Member) Ancestors() [3]*snowflake.ID {
	return [3]*snowflake.ID{m.AncestorL1, m.AncestorL2, m.AncestorL3}
}

// HasAncestor reports whether id appears anywhere in the snapshot.
func (m Member) HasAncestor(id snowflake.ID) bool {
	for _, ancestor := range m.Ancestors() {
		if ancestor != nil && *ancestor == id {
			return true
		}
	}
	return false
}
