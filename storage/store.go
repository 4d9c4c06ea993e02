package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"news-verify/config"
	"news-verify/models"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// UpsertOutcome tells whether UpsertReport created a row or overwrote one.
type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeUpdated  UpsertOutcome = "updated"
)

// Stats are whole-store counters used by the moderation dashboard.
type Stats struct {
	NewsItems       int64 `json:"news_items"`
	Undetected      int64 `json:"undetected"`
	ReportedItems   int64 `json:"reported_items"`
	RegistryEntries int64 `json:"registry_entries"`
}

// Store is the gorm-backed content store.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the database selected by cfg.DBDriver.
func Open(cfg *config.Config, log *zap.Logger) (*Store, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(30 * time.Second)
	}

	log.Info("Connected to database", zap.String("driver", cfg.DBDriver))
	return New(db, log), nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.NewsItem{}, &models.DetectionResult{}, &models.Report{}, &models.FakeNewsEntry{})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateNews inserts a news item, generating its id when empty.
func (s *Store) CreateNews(ctx context.Context, item *models.NewsItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// GetNews loads one news item.
func (s *Store) GetNews(ctx context.Context, id string) (*models.NewsItem, error) {
	var item models.NewsItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// ListNewsBySubmitter returns a submitter's items, newest first.
func (s *Store) ListNewsBySubmitter(ctx context.Context, submitterID string, limit int) ([]models.NewsItem, error) {
	var items []models.NewsItem
	query := s.db.WithContext(ctx).Where("user_id = ?", submitterID).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// RecordDetection stores a detection result and sets the item's credibility level in one
// transaction. It returns ErrNotFound if the item no longer exists.
func (s *Store) RecordDetection(ctx context.Context, det *models.DetectionResult, level models.CredibilityLevel) error {
	if det.ID == "" {
		det.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.NewsItem{}).Where("id = ?", det.NewsID).Update("credibility_level", level)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(det).Error
	})
}

// LatestDetection returns the newest detection for a news item, or nil if it was never detected.
func (s *Store) LatestDetection(ctx context.Context, newsID string) (*models.DetectionResult, error) {
	var det models.DetectionResult
	err := s.db.WithContext(ctx).Where("news_id = ?", newsID).Order("detected_at desc").Take(&det).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &det, nil
}

// LatestDetections returns the newest detection per news id. Undetected ids are absent from the map.
func (s *Store) LatestDetections(ctx context.Context, newsIDs []string) (map[string]*models.DetectionResult, error) {
	out := make(map[string]*models.DetectionResult, len(newsIDs))
	if len(newsIDs) == 0 {
		return out, nil
	}
	var dets []models.DetectionResult
	if err := s.db.WithContext(ctx).Where("news_id IN ?", newsIDs).Order("detected_at asc").Find(&dets).Error; err != nil {
		return nil, err
	}
	for i := range dets {
		out[dets[i].NewsID] = &dets[i]
	}
	return out, nil
}

// CountDetections returns how many detection rows exist for a news item.
func (s *Store) CountDetections(ctx context.Context, newsID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.DetectionResult{}).Where("news_id = ?", newsID).Count(&n).Error
	return n, err
}

// UpsertReport inserts the report or, if the voter already reported this item, overwrites
// vote, comment and timestamp. The conflict is resolved by the unique (news_id, user_id)
// index, so concurrent calls collapse into one row. The stored row is written back into r.
func (s *Store) UpsertReport(ctx context.Context, r *models.Report) (UpsertOutcome, error) {
	var outcome UpsertOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.NewsItem
		if err := tx.Select("id").Where("id = ?", r.NewsID).Take(&item).Error; err != nil {
			return notFound(err)
		}

		candidateID := uuid.NewString()
		r.ID = candidateID
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "news_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote", "comment", "created_at"}),
		}).Create(r).Error
		if err != nil {
			return err
		}

		var stored models.Report
		if err := tx.Where("news_id = ? AND user_id = ?", r.NewsID, r.VoterID).Take(&stored).Error; err != nil {
			return err
		}
		outcome = OutcomeUpdated
		if stored.ID == candidateID {
			outcome = OutcomeInserted
		}
		*r = stored
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// ListReports returns all reports on a news item, newest first.
func (s *Store) ListReports(ctx context.Context, newsID string) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).Where("news_id = ?", newsID).Order("created_at desc").Find(&reports).Error
	return reports, err
}

// Tally counts reports per vote value for a news item.
func (s *Store) Tally(ctx context.Context, newsID string) (models.Tally, error) {
	var rows []struct {
		Vote  string
		Total int64
	}
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Select("vote, COUNT(*) AS total").
		Where("news_id = ?", newsID).
		Group("vote").
		Scan(&rows).Error
	if err != nil {
		return models.Tally{}, err
	}

	var t models.Tally
	for _, row := range rows {
		switch models.Vote(row.Vote) {
		case models.VoteFake:
			t.FakeCount = row.Total
		case models.VoteReal:
			t.RealCount = row.Total
		}
		t.TotalReports += row.Total
	}
	return t, nil
}

// ReportVolumes ranks every reported news item by report count (desc), then by item
// creation time (newest first). Items without reports never appear.
func (s *Store) ReportVolumes(ctx context.Context) ([]models.ReportVolume, error) {
	db := s.db.WithContext(ctx)

	var counts []struct {
		NewsID      string
		ReportCount int64
		FakeVotes   int64
		RealVotes   int64
	}
	err := db.Model(&models.Report{}).
		Select("news_id, COUNT(*) AS report_count, "+
			"SUM(CASE WHEN vote = ? THEN 1 ELSE 0 END) AS fake_votes, "+
			"SUM(CASE WHEN vote = ? THEN 1 ELSE 0 END) AS real_votes",
			string(models.VoteFake), string(models.VoteReal)).
		Group("news_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate reports: %w", err)
	}
	if len(counts) == 0 {
		return []models.ReportVolume{}, nil
	}

	ids := make([]string, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.NewsID)
	}

	var items []models.NewsItem
	if err := db.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load reported news: %w", err)
	}
	byID := make(map[string]models.NewsItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	detections, err := s.LatestDetections(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load detections: %w", err)
	}

	out := make([]models.ReportVolume, 0, len(counts))
	for _, c := range counts {
		item, ok := byID[c.NewsID]
		if !ok || c.ReportCount == 0 {
			// item deleted between the two queries
			continue
		}
		out = append(out, models.ReportVolume{
			News:            item,
			ReportCount:     c.ReportCount,
			FakeVotes:       c.FakeVotes,
			RealVotes:       c.RealVotes,
			LatestDetection: detections[c.NewsID],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReportCount != out[j].ReportCount {
			return out[i].ReportCount > out[j].ReportCount
		}
		if !out[i].News.CreatedAt.Equal(out[j].News.CreatedAt) {
			return out[i].News.CreatedAt.After(out[j].News.CreatedAt)
		}
		return out[i].News.ID < out[j].News.ID
	})
	return out, nil
}

// DeleteNews removes a news item together with its reports and detection results in one
// transaction. It returns ErrNotFound, and changes nothing, if the item does not exist.
func (s *Store) DeleteNews(ctx context.Context, newsID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.NewsItem
		if err := tx.Select("id").Where("id = ?", newsID).Take(&item).Error; err != nil {
			return notFound(err)
		}
		reports := tx.Where("news_id = ?", newsID).Delete(&models.Report{})
		if reports.Error != nil {
			return fmt.Errorf("delete reports: %w", reports.Error)
		}
		detections := tx.Where("news_id = ?", newsID).Delete(&models.DetectionResult{})
		if detections.Error != nil {
			return fmt.Errorf("delete detections: %w", detections.Error)
		}
		if err := tx.Where("id = ?", newsID).Delete(&models.NewsItem{}).Error; err != nil {
			return fmt.Errorf("delete news: %w", err)
		}
		s.log.Debug("Deleted news item",
			zap.String("news_id", newsID),
			zap.Int64("reports", reports.RowsAffected),
			zap.Int64("detections", detections.RowsAffected))
		return nil
	})
}

// CreateRegistryEntry inserts a curated fake-news entry.
func (s *Store) CreateRegistryEntry(ctx context.Context, entry *models.FakeNewsEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// SearchRegistry returns entries whose title or content contains term, ignoring case,
// newest first. An empty term matches everything.
func (s *Store) SearchRegistry(ctx context.Context, term string, limit int) ([]models.FakeNewsEntry, error) {
	query := s.db.WithContext(ctx).Order("created_at desc")
	if term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(content, '')) LIKE ? ESCAPE '\'`, like, like)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.FakeNewsEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats collects the dashboard counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	db := s.db.WithContext(ctx)
	var st Stats
	if err := db.Model(&models.NewsItem{}).Count(&st.NewsItems).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.NewsItem{}).
		Where("NOT EXISTS (SELECT 1 FROM detection_results d WHERE d.news_id = news.id)").
		Count(&st.Undetected).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.Report{}).Distinct("news_id").Count(&st.ReportedItems).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.FakeNewsEntry{}).Count(&st.RegistryEntries).Error; err != nil {
		return st, err
	}
	return st, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
