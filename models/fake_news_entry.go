package models

import "time"

// DefaultCurator is recorded when an entry is added without a curator.
const DefaultCurator = "admin"

// FakeNewsEntry is a curated record of a known fake narrative.
// It is deliberately not linked to NewsItem.
type FakeNewsEntry struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	Title      string    `json:"title" gorm:"type:text;not null"`
	Content    *string   `json:"content,omitempty" gorm:"type:text"`
	SourceURL  *string   `json:"source_url,omitempty" gorm:"type:text"`
	VerifiedBy string    `json:"verified_by" gorm:"size:64;not null"`
	Tags       []string  `json:"tags" gorm:"serializer:json;type:text"`
}

// TableName sets the table name explicitly.
func (FakeNewsEntry) TableName() string {
	return "fake_news_db"
}
