package models

import (
	"net/url"
	"strings"
	"time"
)

// CredibilityLevel is the coarse trust label attached to a news item.
type CredibilityLevel string

const (
	CredibilityLow    CredibilityLevel = "low"
	CredibilityMedium CredibilityLevel = "medium"
	CredibilityHigh   CredibilityLevel = "high"
)

// ParseCredibility reports whether s is one of the known levels.
func ParseCredibility(s string) (CredibilityLevel, bool) {
	switch l := CredibilityLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case CredibilityLow, CredibilityMedium, CredibilityHigh:
		return l, true
	}
	return "", false
}

// NewsItem is a user submission awaiting or carrying an automated verdict.
type NewsItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	SubmitterID string    `json:"user_id" gorm:"column:user_id;size:64;index;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`

	Title        *string `json:"title,omitempty"`
	Content      string  `json:"content" gorm:"type:text;not null"`
	URL          *string `json:"url,omitempty" gorm:"type:text"`
	ImageRef     *string `json:"image_filename,omitempty" gorm:"column:image_filename"`
	SourceDomain *string `json:"source_domain,omitempty" gorm:"index"`

	CredibilityLevel CredibilityLevel `json:"credibility_level" gorm:"size:16;not null;default:'medium'"`
}

// TableName sets the table name explicitly.
func (NewsItem) TableName() string {
	return "news"
}

// SourceDomainOf extracts the lower-cased host of rawURL without a leading "www.".
// It returns nil when rawURL is empty or has no parsable host.
func SourceDomainOf(rawURL string) *string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return nil
	}
	return &host
}
