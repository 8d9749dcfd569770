package models

import "time"

// PostModel is a published affiliate page. Rows are insert-only: the
// pipeline never updates or deletes a post once it is accepted.
type PostModel struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Slug      string    `json:"slug"       gorm:"uniqueIndex;size:255;not null"`
	Title     string    `json:"title"      gorm:"not null"`
	Keyword   string    `json:"keyword"    gorm:"not null"`
	Summary   string    `json:"summary"    gorm:"type:text;not null"`
	SourceURL string    `json:"source_url" gorm:"not null"`
	OfferName string    `json:"offer_name" gorm:"not null"`
	OfferURL  string    `json:"offer_url"  gorm:"type:text;not null"`
	HTMLPath  string    `json:"html_path"  gorm:"not null"`
	WordCount int       `json:"word_count" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostModel) TableName() string { return "posts" }
