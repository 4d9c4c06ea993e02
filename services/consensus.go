package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"news-verify/metrics"
	"news-verify/models"
	"news-verify/storage"
)

// ConsensusService records community votes and aggregates them.
type ConsensusService struct {
	Store  ContentStore
	Logger *zap.Logger
	Now    func() time.Time
}

// NewConsensusService creates a new ConsensusService.
func NewConsensusService(store ContentStore, logger *zap.Logger) *ConsensusService {
	return &ConsensusService{
		Store:  store,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordVote stores the voter's vote on a news item. A repeated vote by the same voter
// overwrites vote, comment and timestamp of the existing report.
func (c *ConsensusService) RecordVote(ctx context.Context, newsID, voterID string, vote models.Vote, comment *string) (*models.Report, storage.UpsertOutcome, error) {
	if strings.TrimSpace(newsID) == "" || strings.TrimSpace(voterID) == "" || vote == "" {
		return nil, "", invalid("News ID, User ID, and vote are required")
	}
	if !vote.Valid() {
		return nil, "", invalid(`Vote must be either "Fake" or "Real"`)
	}

	report := &models.Report{
		NewsID:    newsID,
		VoterID:   voterID,
		Vote:      vote,
		Comment:   nonEmpty(comment),
		CreatedAt: c.Now(),
	}
	outcome, err := c.Store.UpsertReport(ctx, report)
	if err != nil {
		err = storeErr("upsert report", err)
		c.logDependency("Failed to record vote", err, zap.String("news_id", newsID))
		return nil, "", err
	}

	metrics.VotesRecorded.WithLabelValues(string(outcome)).Inc()
	c.Logger.Info("Vote recorded",
		zap.String("news_id", newsID),
		zap.String("user_id", voterID),
		zap.String("vote", string(vote)),
		zap.String("outcome", string(outcome)))
	return report, outcome, nil
}

// TallyFor counts the Fake and Real votes on a news item.
func (c *ConsensusService) TallyFor(ctx context.Context, newsID string) (models.Tally, error) {
	if _, err := c.Store.GetNews(ctx, newsID); err != nil {
		err = storeErr("load news", err)
		c.logDependency("Failed to load news for tally", err, zap.String("news_id", newsID))
		return models.Tally{}, err
	}
	tally, err := c.Store.Tally(ctx, newsID)
	if err != nil {
		err = dependency("tally reports", err)
		c.logDependency("Failed to tally reports", err, zap.String("news_id", newsID))
		return models.Tally{}, err
	}
	return tally, nil
}

// Reports returns the reports on a news item, newest first, together with the tally.
func (c *ConsensusService) Reports(ctx context.Context, newsID string) ([]models.Report, models.Tally, error) {
	tally, err := c.TallyFor(ctx, newsID)
	if err != nil {
		return nil, models.Tally{}, err
	}
	reports, err := c.Store.ListReports(ctx, newsID)
	if err != nil {
		err = dependency("list reports", err)
		c.logDependency("Failed to list reports", err, zap.String("news_id", newsID))
		return nil, models.Tally{}, err
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, tally, nil
}

// ListByReportVolume returns every reported item, most reported first.
func (c *ConsensusService) ListByReportVolume(ctx context.Context) ([]models.ReportVolume, error) {
	volumes, err := c.Store.ReportVolumes(ctx)
	if err != nil {
		err = dependency("report volumes", err)
		c.logDependency("Failed to rank reported news", err)
		return nil, err
	}
	return volumes, nil
}

func (c *ConsensusService) logDependency(msg string, err error, fields ...zap.Field) {
	if err == nil || !isDependency(err) {
		return
	}
	c.Logger.Error(msg, append(fields, zap.Error(err))...)
}
