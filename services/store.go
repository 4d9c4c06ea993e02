package services

import (
	"context"

	"news-verify/models"
	"news-verify/storage"
)

// ContentStore is the persistence contract the services rely on.
// *storage.Store implements it.
type ContentStore interface {
	CreateNews(ctx context.Context, item *models.NewsItem) error
	GetNews(ctx context.Context, id string) (*models.NewsItem, error)
	ListNewsBySubmitter(ctx context.Context, submitterID string, limit int) ([]models.NewsItem, error)
	RecordDetection(ctx context.Context, det *models.DetectionResult, level models.CredibilityLevel) error
	LatestDetection(ctx context.Context, newsID string) (*models.DetectionResult, error)
	LatestDetections(ctx context.Context, newsIDs []string) (map[string]*models.DetectionResult, error)
	CountDetections(ctx context.Context, newsID string) (int64, error)

	UpsertReport(ctx context.Context, r *models.Report) (storage.UpsertOutcome, error)
	ListReports(ctx context.Context, newsID string) ([]models.Report, error)
	Tally(ctx context.Context, newsID string) (models.Tally, error)
	ReportVolumes(ctx context.Context) ([]models.ReportVolume, error)

	CreateRegistryEntry(ctx context.Context, entry *models.FakeNewsEntry) error
	SearchRegistry(ctx context.Context, term string, limit int) ([]models.FakeNewsEntry, error)
	DeleteNews(ctx context.Context, newsID string) error
	Stats(ctx context.Context) (storage.Stats, error)
}

var _ ContentStore = (*storage.Store)(nil)
