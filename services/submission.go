package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"news-verify/metrics"
	"news-verify/models"
	"news-verify/providers"
)

const (
	// MinContentLength is the minimum trimmed length of submitted content, in characters.
	MinContentLength = 10
	// HistoryLimit caps the number of items returned by History.
	HistoryLimit = 50
)

// SubmitInput is a news submission. Empty optional strings are treated as absent.
type SubmitInput struct {
	SubmitterID string
	Title       *string
	Content     string
	URL         *string
	ImageRef    *string
}

// Submission is a stored news item with its detection result, if any.
type Submission struct {
	News      *models.NewsItem        `json:"news"`
	Detection *models.DetectionResult `json:"detection,omitempty"`
}

// NewsDetail is a news item with its latest detection, community reports and tally.
type NewsDetail struct {
	News      *models.NewsItem        `json:"news"`
	Detection *models.DetectionResult `json:"detection,omitempty"`
	Reports   []models.Report         `json:"reports"`
	Tally     models.Tally            `json:"tally"`
}

// HistoryEntry is one row of a submitter's history.
type HistoryEntry struct {
	models.NewsItem
	Detection *models.DetectionResult `json:"detection,omitempty"`
}

// SubmissionService creates news items and runs them through the classifier.
type SubmissionService struct {
	Store      ContentStore
	Classifier providers.Classifier
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(store ContentStore, classifier providers.Classifier, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{
		Store:      store,
		Classifier: classifier,
		Logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and stores a news item, then asks the classifier for a verdict.
//
// The item is persisted before the classifier is called and is never rolled back.
// If detection fails the returned error is a *PartialFailureError carrying the item id.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*Submission, error) {
	if strings.TrimSpace(in.SubmitterID) == "" {
		return nil, invalid("submitter id is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Content)) < MinContentLength {
		return nil, invalid("News content must be at least %d characters", MinContentLength)
	}

	url := nonEmpty(in.URL)
	item := &models.NewsItem{
		SubmitterID:      in.SubmitterID,
		Title:            nonEmpty(in.Title),
		Content:          in.Content,
		URL:              url,
		ImageRef:         nonEmpty(in.ImageRef),
		CredibilityLevel: models.CredibilityMedium,
		CreatedAt:        s.Now(),
	}
	if url != nil {
		item.SourceDomain = models.SourceDomainOf(*url)
	}

	if err := s.Store.CreateNews(ctx, item); err != nil {
		s.Logger.Error("Failed to store news item", zap.String("user_id", in.SubmitterID), zap.Error(err))
		return nil, dependency("create news", err)
	}

	det, err := s.detect(ctx, item)
	if err != nil {
		metrics.NewsSubmissions.WithLabelValues("undetected").Inc()
		return nil, &PartialFailureError{NewsID: item.ID, Err: err}
	}
	metrics.NewsSubmissions.WithLabelValues("detected").Inc()
	return &Submission{News: item, Detection: det}, nil
}

// Redetect runs the classifier for a stored item that has no detection result yet.
func (s *SubmissionService) Redetect(ctx context.Context, newsID string) (*Submission, error) {
	item, err := s.Store.GetNews(ctx, newsID)
	if err != nil {
		return nil, s.logged("load news", storeErr("load news", err))
	}
	n, err := s.Store.CountDetections(ctx, newsID)
	if err != nil {
		return nil, s.logged("count detections", dependency("count detections", err))
	}
	if n > 0 {
		return nil, invalid("News %s has already been analyzed", newsID)
	}

	det, err := s.detect(ctx, item)
	if err != nil {
		return nil, &PartialFailureError{NewsID: item.ID, Err: err}
	}
	return &Submission{News: item, Detection: det}, nil
}

func (s *SubmissionService) detect(ctx context.Context, item *models.NewsItem) (*models.DetectionResult, error) {
	log := s.Logger.With(zap.String("news_id", item.ID))

	verdict, err := s.Classifier.Detect(ctx, providers.DetectionRequest{Text: item.Content, URL: item.URL})
	if err != nil {
		log.Warn("Detection failed, news item kept without result", zap.String("classifier", s.Classifier.Name()), zap.Error(err))
		return nil, err
	}

	level := models.CredibilityMedium
	if verdict.SourceCredibility != nil {
		level = *verdict.SourceCredibility
	} else {
		log.Warn("Classifier returned no source credibility, using medium")
	}

	det := &models.DetectionResult{
		NewsID:      item.ID,
		Result:      verdict.Result,
		Confidence:  verdict.Confidence,
		Explanation: verdict.Explanation,
		DetectedAt:  s.Now(),
	}
	if err := s.Store.RecordDetection(ctx, det, level); err != nil {
		log.Error("Failed to store detection result", zap.Error(err))
		return nil, dependency("record detection", err)
	}
	item.CredibilityLevel = level

	log.Info("News item analyzed",
		zap.String("result", det.Result),
		zap.Float64("confidence", det.Confidence),
		zap.String("credibility_level", string(level)))
	return det, nil
}

// GetNews returns a news item with its latest detection and community reports.
func (s *SubmissionService) GetNews(ctx context.Context, id string) (*NewsDetail, error) {
	item, err := s.Store.GetNews(ctx, id)
	if err != nil {
		return nil, s.logged("load news", storeErr("load news", err))
	}
	det, err := s.Store.LatestDetection(ctx, id)
	if err != nil {
		return nil, s.logged("load detection", dependency("load detection", err))
	}
	reports, err := s.Store.ListReports(ctx, id)
	if err != nil {
		return nil, s.logged("load reports", dependency("load reports", err))
	}
	tally, err := s.Store.Tally(ctx, id)
	if err != nil {
		return nil, s.logged("tally reports", dependency("tally reports", err))
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return &NewsDetail{News: item, Detection: det, Reports: reports, Tally: tally}, nil
}

// History returns the newest HistoryLimit items of a submitter with their latest detections.
func (s *SubmissionService) History(ctx context.Context, submitterID string) ([]HistoryEntry, error) {
	items, err := s.Store.ListNewsBySubmitter(ctx, submitterID, HistoryLimit)
	if err != nil {
		return nil, s.logged("list history", dependency("list history", err))
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	detections, err := s.Store.LatestDetections(ctx, ids)
	if err != nil {
		return nil, s.logged("load detections", dependency("load detections", err))
	}

	out := make([]HistoryEntry, 0, len(items))
	for _, item := range items {
		out = append(out, HistoryEntry{NewsItem: item, Detection: detections[item.ID]})
	}
	return out, nil
}

// logged writes dependency failures to the log and passes err through.
func (s *SubmissionService) logged(op string, err error) error {
	if isDependency(err) {
		s.Logger.Error("Store operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
