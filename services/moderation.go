package services

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"news-verify/metrics"
	"news-verify/models"
	"news-verify/storage"
)

// RegistryLimit caps the number of registry entries returned by a search.
const RegistryLimit = 100

// RegistryInput describes a new fake news registry entry.
type RegistryInput struct {
	Title     string
	Content   *string
	SourceURL *string
	Tags      []string
	Curator   string
}

// ModerationService implements the administrative operations. Callers must have
// passed the admin check before calling any method.
type ModerationService struct {
	Store     ContentStore
	Consensus *ConsensusService
	Logger    *zap.Logger
	Now       func() time.Time

	// search results, flushed on every registry write
	searches *cache.Cache
}

// NewModerationService creates a ModerationService. A non-positive cacheTTL disables
// caching of registry searches.
func NewModerationService(store ContentStore, consensus *ConsensusService, logger *zap.Logger, cacheTTL time.Duration) *ModerationService {
	m := &ModerationService{
		Store:     store,
		Consensus: consensus,
		Logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}
	if cacheTTL > 0 {
		m.searches = cache.New(cacheTTL, 2*cacheTTL)
	}
	return m
}

// AddToRegistry stores a curated fake news entry.
func (m *ModerationService) AddToRegistry(ctx context.Context, in RegistryInput) (*models.FakeNewsEntry, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("Title is required")
	}

	curator := strings.TrimSpace(in.Curator)
	if curator == "" {
		curator = models.DefaultCurator
	}
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	entry := &models.FakeNewsEntry{
		CreatedAt:  m.Now(),
		Title:      title,
		Content:    nonEmpty(in.Content),
		SourceURL:  nonEmpty(in.SourceURL),
		VerifiedBy: curator,
		Tags:       tags,
	}
	if err := m.Store.CreateRegistryEntry(ctx, entry); err != nil {
		m.Logger.Error("Failed to add registry entry", zap.String("title", title), zap.Error(err))
		return nil, dependency("create registry entry", err)
	}
	if m.searches != nil {
		m.searches.Flush()
	}

	metrics.RegistryEntriesAdded.Inc()
	m.Logger.Info("Fake news added to registry", zap.String("id", entry.ID), zap.String("verified_by", curator))
	return entry, nil
}

// SearchRegistry returns up to RegistryLimit entries, newest first. A non-empty term
// restricts the result to entries whose title or content contains it, ignoring case.
func (m *ModerationService) SearchRegistry(ctx context.Context, term string) ([]models.FakeNewsEntry, error) {
	term = strings.TrimSpace(term)
	key := strings.ToLower(term)
	if m.searches != nil {
		if hit, ok := m.searches.Get(key); ok {
			return hit.([]models.FakeNewsEntry), nil
		}
	}

	entries, err := m.Store.SearchRegistry(ctx, term, RegistryLimit)
	if err != nil {
		m.Logger.Error("Registry search failed", zap.String("search", term), zap.Error(err))
		return nil, dependency("search registry", err)
	}
	if entries == nil {
		entries = []models.FakeNewsEntry{}
	}
	if m.searches != nil {
		m.searches.SetDefault(key, entries)
	}
	return entries, nil
}

// DeleteItem removes a news item with its detection results and reports.
func (m *ModerationService) DeleteItem(ctx context.Context, newsID string) error {
	if err := m.Store.DeleteNews(ctx, newsID); err != nil {
		err = storeErr("delete news", err)
		if isDependency(err) {
			m.Logger.Error("Failed to delete news", zap.String("news_id", newsID), zap.Error(err))
		}
		return err
	}
	metrics.NewsDeleted.Inc()
	m.Logger.Info("News deleted", zap.String("news_id", newsID))
	return nil
}

// ListReported returns reported news ranked by report volume.
func (m *ModerationService) ListReported(ctx context.Context) ([]models.ReportVolume, error) {
	return m.Consensus.ListByReportVolume(ctx)
}

// Stats returns the moderation dashboard counters.
func (m *ModerationService) Stats(ctx context.Context) (storage.Stats, error) {
	st, err := m.Store.Stats(ctx)
	if err != nil {
		m.Logger.Error("Failed to collect stats", zap.Error(err))
		return storage.Stats{}, dependency("stats", err)
	}
	return st, nil
}

// RefreshGauges copies the current stats into the prometheus gauges.
func (m *ModerationService) RefreshGauges(ctx context.Context) error {
	st, err := m.Stats(ctx)
	if err != nil {
		return err
	}
	metrics.StoreItems.WithLabelValues("news").Set(float64(st.NewsItems))
	metrics.StoreItems.WithLabelValues("undetected").Set(float64(st.Undetected))
	metrics.StoreItems.WithLabelValues("reported").Set(float64(st.ReportedItems))
	metrics.StoreItems.WithLabelValues("registry").Set(float64(st.RegistryEntries))
	return nil
}
