package domain

import (
	"time"

	"gorm.io/gorm"
)

// Lead statuses. Any other value is rejected before reaching storage.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusSpam       = "spam"
)

// Lead represents a visitor inquiry submitted through the site form
type Lead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Phone     string    `gorm:"not null" json:"phone"`
	Comment   string    `gorm:"type:text" json:"comment"`
	UTM       *string   `gorm:"column:utm" json:"utm"`
	Referrer  *string   `json:"referrer"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `gorm:"default:'new';index" json:"status"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate hook
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	return nil
}

// ValidStatus reports whether s is one of the four lead statuses
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone, StatusSpam:
		return true
	}
	return false
}

// CommentOrDash returns the comment or "-" when empty, for notification text
func (l *Lead) CommentOrDash() string {
	if l.Comment == "" {
		return "-"
	}
	return l.Comment
}

// UTMOrDash returns the campaign tag or "-" when absent
func (l *Lead) UTMOrDash() string {
	if l.UTM == nil || *l.UTM == "" {
		return "-"
	}
	return *l.UTM
}

// ReferrerOrDash returns the referrer or "-" when absent
func (l *Lead) ReferrerOrDash() string {
	if l.Referrer == nil || *l.Referrer == "" {
		return "-"
	}
	return *l.Referrer
}
