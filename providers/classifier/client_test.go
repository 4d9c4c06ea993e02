package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"news-verify/config"
	"news-verify/models"
	"news-verify/providers"
)

const predictURL = "http://classifier.test/predict"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, timeout time.Duration) (*Client, *httpmock.MockTransport) {
	t.Helper()
	cfg := &config.Config{
		ClassifierURL:     "http://classifier.test/",
		ClassifierAPIKey:  "secret",
		ClassifierTimeout: timeout,
	}
	c := NewClient(cfg, zaptest.NewLogger(t))
	mock := httpmock.NewMockTransport()
	c.http.Transport = mock
	return c, mock
}

func strPtr(s string) *string { return &s }

func TestDetectSuccess(t *testing.T) {
	c, mock := newTestClient(t, time.Second)

	var got providers.DetectionRequest
	mock.RegisterResponder(http.MethodPost, predictURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return nil, err
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"result":             "Fake",
			"confidence":         87.5,
			"explanation":        "Sensational wording",
			"source_credibility": "low",
		})
	})

	v, err := c.Detect(context.Background(), providers.DetectionRequest{Text: "Breaking: something happened", URL: strPtr("https://example.com")})
	require.NoError(t, err)
	assert.Equal(t, "Fake", v.Result)
	assert.InDelta(t, 87.5, v.Confidence, 1e-9)
	assert.Equal(t, "Sensational wording", v.Explanation)
	require.NotNil(t, v.SourceCredibility)
	assert.Equal(t, models.CredibilityLow, *v.SourceCredibility)

	assert.Equal(t, "Breaking: something happened", got.Text)
	require.NotNil(t, got.URL)
	assert.Equal(t, "https://example.com", *got.URL)
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestDetectWithoutSourceCredibility(t *testing.T) {
	c, mock := newTestClient(t, time.Second)
	mock.RegisterResponder(http.MethodPost, predictURL,
		httpmock.NewStringResponder(http.StatusOK, `{"result":"Real","confidence":0.4,"explanation":""}`))

	v, err := c.Detect(context.Background(), providers.DetectionRequest{Text: "plain content here"})
	require.NoError(t, err)
	assert.Equal(t, "Real", v.Result)
	assert.Nil(t, v.SourceCredibility)
}

func TestDetectSendsNullURL(t *testing.T) {
	c, mock := newTestClient(t, time.Second)

	var raw map[string]any
	mock.RegisterResponder(http.MethodPost, predictURL, func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"result":"Real","confidence":1,"explanation":"ok"}`), nil
	})

	_, err := c.Detect(context.Background(), providers.DetectionRequest{Text: "plain content here"})
	require.NoError(t, err)
	v, present := raw["url"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestDetectFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		kind      providers.FailureKind
	}{
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"boom"}`),
			kind:      providers.FailureStatus,
		},
		{
			name:      "malformed json",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"result":`),
			kind:      providers.FailureSchema,
		},
		{
			name:      "missing confidence",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"result":"Fake","explanation":"x"}`),
			kind:      providers.FailureSchema,
		},
		{
			name:      "empty result",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"result":" ","confidence":1,"explanation":"x"}`),
			kind:      providers.FailureSchema,
		},
		{
			name:      "unknown credibility",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"result":"Fake","confidence":1,"explanation":"x","source_credibility":"very"}`),
			kind:      providers.FailureSchema,
		},
		{
			name:      "connection refused",
			responder: httpmock.NewErrorResponder(errors.New("connection refused")),
			kind:      providers.FailureTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newTestClient(t, time.Second)
			mock.RegisterResponder(http.MethodPost, predictURL, tt.responder)

			v, err := c.Detect(context.Background(), providers.DetectionRequest{Text: "some content to check"})
			assert.Nil(t, v)

			var cerr *providers.ClassifierError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.kind, cerr.Kind)
		})
	}
}

func TestDetectStatusCodeRecorded(t *testing.T) {
	c, mock := newTestClient(t, time.Second)
	mock.RegisterResponder(http.MethodPost, predictURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	_, err := c.Detect(context.Background(), providers.DetectionRequest{Text: "some content to check"})
	var cerr *providers.ClassifierError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusServiceUnavailable, cerr.StatusCode)
	assert.Contains(t, cerr.Error(), "503")
}

func TestDetectTimeout(t *testing.T) {
	c, mock := newTestClient(t, 50*time.Millisecond)
	mock.RegisterResponder(http.MethodPost, predictURL, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	start := time.Now()
	_, err := c.Detect(context.Background(), providers.DetectionRequest{Text: "some content to check"})
	assert.Less(t, time.Since(start), 2*time.Second)

	var cerr *providers.ClassifierError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, providers.FailureTimeout, cerr.Kind)
}

func TestName(t *testing.T) {
	c, _ := newTestClient(t, time.Second)
	assert.Equal(t, "http", c.Name())
}
