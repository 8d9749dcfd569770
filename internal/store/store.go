// Package store is the persistence gateway: a narrow record-level interface
// over the relational schema, so the pipeline and handlers never touch gorm
// query building directly.
package store

import (
	"errors"
	"time"

	"github.com/autoprofit/core/internal/models"
	"gorm.io/gorm"
)

// SubscriptionUpsert carries one provider event's worth of subscription state.
type SubscriptionUpsert struct {
	SubscriptionID   string
	CustomerEmail    *string
	Status           string
	CurrentPeriodEnd *string
	SourceEvent      string
	RawJSON          string
}

// Metrics are the row counts exposed at /api/metrics.
type Metrics struct {
	Posts  int64 `json:"posts"`
	Clicks int64 `json:"clicks"`
	Runs   int64 `json:"runs"`
}

// Store is the record-level persistence interface consumed by the pipeline
// and the HTTP handlers. Every operation is atomic and durable on return.
type Store interface {
	SlugExists(slug string) (bool, error)
	InsertPost(post *models.PostModel) error
	ListRecent(limit int) ([]models.PostModel, error)
	OfferURLBySlug(slug string) (string, error)
	AppendClick(click *models.ClickModel) error

	StartRun() (uint, error)
	FinishRun(runID uint, status string, summaryJSON string) error

	UpsertSubscription(up SubscriptionUpsert) error
	SubscriptionByEmail(email string) (*models.SubscriptionModel, error)

	Metrics() (Metrics, error)
}

type gormStore struct{ db *gorm.DB }

// New wraps a gorm connection in the Store interface.
func New(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) SlugExists(slug string) (bool, error) {
	var count int64
	err := s.db.Model(&models.PostModel{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (s *gormStore) InsertPost(post *models.PostModel) error {
	return s.db.Create(post).Error
}

func (s *gormStore) ListRecent(limit int) ([]models.PostModel, error) {
	var posts []models.PostModel
	err := s.db.Order("id DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

// OfferURLBySlug returns the tracked destination for a slug, or "" when the
// slug is unknown.
func (s *gormStore) OfferURLBySlug(slug string) (string, error) {
	var post models.PostModel
	err := s.db.Select("offer_url").Where("slug = ?", slug).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return post.OfferURL, nil
}

func (s *gormStore) AppendClick(click *models.ClickModel) error {
	return s.db.Create(click).Error
}

func (s *gormStore) StartRun() (uint, error) {
	run := models.RunModel{
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}
	if err := s.db.Create(&run).Error; err != nil {
		return 0, err
	}
	return run.ID, nil
}

func (s *gormStore) FinishRun(runID uint, status string, summaryJSON string) error {
	now := time.Now().UTC()
	return s.db.Model(&models.RunModel{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"finished_at":  &now,
		"status":       status,
		"summary_json": summaryJSON,
	}).Error
}

// UpsertSubscription writes last-write-wins on every field except the email,
// which is preserved when the incoming event carries none. That asymmetry is
// intentional: cancellation events often arrive without customer details.
func (s *gormStore) UpsertSubscription(up SubscriptionUpsert) error {
	var existing models.SubscriptionModel
	err := s.db.Where("subscription_id = ?", up.SubscriptionID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub := models.SubscriptionModel{
			SubscriptionID:   up.SubscriptionID,
			CustomerEmail:    up.CustomerEmail,
			Status:           up.Status,
			CurrentPeriodEnd: up.CurrentPeriodEnd,
			SourceEvent:      up.SourceEvent,
			RawJSON:          up.RawJSON,
			UpdatedAt:        time.Now().UTC(),
		}
		return s.db.Create(&sub).Error
	}
	if err != nil {
		return err
	}

	email := up.CustomerEmail
	if email == nil || *email == "" {
		email = existing.CustomerEmail
	}
	return s.db.Model(&models.SubscriptionModel{}).
		Where("subscription_id = ?", up.SubscriptionID).
		Updates(map[string]interface{}{
			"customer_email":     email,
			"status":             up.Status,
			"current_period_end": up.CurrentPeriodEnd,
			"source_event":       up.SourceEvent,
			"raw_json":           up.RawJSON,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (s *gormStore) SubscriptionByEmail(email string) (*models.SubscriptionModel, error) {
	var sub models.SubscriptionModel
	err := s.db.Where("customer_email = ?", email).Order("updated_at DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) Metrics() (Metrics, error) {
	var m Metrics
	if err := s.db.Model(&models.PostModel{}).Count(&m.Posts).Error; err != nil {
		return m, err
	}
	if err := s.db.Model(&models.ClickModel{}).Count(&m.Clicks).Error; err != nil {
		return m, err
	}
	if err := s.db.Model(&models.RunModel{}).Count(&m.Runs).Error; err != nil {
		return m, err
	}
	return m, nil
}
