package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"news-verify/models"
	"news-verify/providers"
	"news-verify/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := storage.New(db, zaptest.NewLogger(t))
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeClassifier returns a fixed verdict or error and records the requests it got.
type fakeClassifier struct {
	mu       sync.Mutex
	verdict  *providers.Verdict
	err      error
	requests []providers.DetectionRequest
}

func (f *fakeClassifier) Detect(_ context.Context, req providers.DetectionRequest) (*providers.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	v := *f.verdict
	return &v, nil
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func verdictWith(level *models.CredibilityLevel) *providers.Verdict {
	return &providers.Verdict{
		Result:            "FAKE",
		Confidence:        0.87,
		Explanation:       "sensational wording",
		SourceCredibility: level,
	}
}

var testNow = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

// clock returns increasing timestamps starting at testNow.
func clock() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return testNow.Add(time.Duration(n) * time.Second)
	}
}

func levelPtr(l models.CredibilityLevel) *models.CredibilityLevel { return &l }

func strPtr(s string) *string { return &s }

type testServices struct {
	store      *storage.Store
	classifier *fakeClassifier
	submission *SubmissionService
	consensus  *ConsensusService
	moderation *ModerationService
}

func setupServices(t *testing.T, cacheTTL time.Duration) *testServices {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := newTestStore(t)
	fc := &fakeClassifier{verdict: verdictWith(levelPtr(models.CredibilityLow))}

	sub := NewSubmissionService(store, fc, log)
	sub.Now = clock()
	cons := NewConsensusService(store, log)
	cons.Now = clock()
	mod := NewModerationService(store, cons, log, cacheTTL)
	mod.Now = clock()

	return &testServices{store: store, classifier: fc, submission: sub, consensus: cons, moderation: mod}
}

// submit stores a detected news item and fails the test on error.
func (ts *testServices) submit(t *testing.T, submitter, content string) *models.NewsItem {
	t.Helper()
	res, err := ts.submission.Submit(context.Background(), SubmitInput{SubmitterID: submitter, Content: content})
	require.NoError(t, err)
	return res.News
}
