package models

import "time"

// ClickModel is an append-only redirect event, one row per /go/:slug hit.
// The slug is not a foreign key: a click may reference a slug that no
// longer resolves to a live post.
type ClickModel struct {
	ID             uint      `json:"id"              gorm:"primaryKey;autoIncrement"`
	Slug           string    `json:"slug"            gorm:"index;size:255;not null"`
	DestinationURL string    `json:"destination_url" gorm:"type:text;not null"`
	Referrer       string    `json:"referrer"`
	IPAddress      string    `json:"ip_address"      gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ClickModel) TableName() string { return "clicks" }
