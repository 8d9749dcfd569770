package models

import "time"

// SubscriptionModel mirrors the provider-side subscription state, upserted
// from Stripe webhook events. CustomerEmail is nullable because some events
// arrive without one; the upsert must never blank out a known email.
type SubscriptionModel struct {
	ID               uint      `json:"id"                 gorm:"primaryKey;autoIncrement"`
	SubscriptionID   string    `json:"subscription_id"    gorm:"uniqueIndex;size:255;not null"`
	CustomerEmail    *string   `json:"customer_email"     gorm:"size:320;index"`
	Status           string    `json:"status"             gorm:"size:64;not null"`
	CurrentPeriodEnd *string   `json:"current_period_end" gorm:"size:64"`
	SourceEvent      string    `json:"source_event"       gorm:"size:128;not null"`
	RawJSON          string    `json:"raw_json"           gorm:"type:text;not null"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }
