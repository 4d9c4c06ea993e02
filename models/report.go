package models

import "time"

// Vote is a community verdict on a news item.
type Vote string

const (
	VoteFake Vote = "Fake"
	VoteReal Vote = "Real"
)

// Valid reports whether v is Fake or Real. The comparison is case-sensitive.
func (v Vote) Valid() bool {
	return v == VoteFake || v == VoteReal
}

// Report is one voter's opinion on one news item. (news_id, user_id) is unique.
type Report struct {
	ID      string    `json:"id" gorm:"primaryKey;size:36"`
	NewsID  string    `json:"news_id" gorm:"size:36;not null;uniqueIndex:idx_reports_news_voter"`
	News    *NewsItem `json:"-" gorm:"foreignKey:NewsID;constraint:OnDelete:CASCADE;"`
	VoterID string    `json:"user_id" gorm:"column:user_id;size:64;not null;uniqueIndex:idx_reports_news_voter"`
	Vote    Vote      `json:"vote" gorm:"size:8;not null"`
	Comment *string   `json:"comment,omitempty" gorm:"type:text"`
	// Refreshed on every upsert.
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the table name explicitly.
func (Report) TableName() string {
	return "reports"
}

// Tally is the community consensus for a single news item.
type Tally struct {
	FakeCount    int64 `json:"fakeCount"`
	RealCount    int64 `json:"realCount"`
	TotalReports int64 `json:"totalReports"`
}

// ReportVolume is one row of the moderation ranking.
type ReportVolume struct {
	News            NewsItem         `json:"news"`
	ReportCount     int64            `json:"report_count"`
	FakeVotes       int64            `json:"fake_votes"`
	RealVotes       int64            `json:"real_votes"`
	LatestDetection *DetectionResult `json:"detection,omitempty"`
}
