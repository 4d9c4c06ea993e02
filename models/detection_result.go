package models

import "time"

// DetectionResult stores the classifier verdict for a news item. Rows are never updated.
type DetectionResult struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	NewsID      string    `json:"news_id" gorm:"size:36;index;not null"`
	News        *NewsItem `json:"-" gorm:"foreignKey:NewsID;constraint:OnDelete:CASCADE;"`
	Result      string    `json:"result" gorm:"size:64;not null"`
	Confidence  float64   `json:"confidence"`
	Explanation string    `json:"explanation" gorm:"type:text"`
	DetectedAt  time.Time `json:"detected_at" gorm:"index"`
}

// TableName sets the table name explicitly.
func (DetectionResult) TableName() string {
	return "detection_results"
}
