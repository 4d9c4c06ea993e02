package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"news-verify/config"
	"news-verify/metrics"
	"news-verify/models"
	"news-verify/providers"
)

const maxResponseBytes = 1 << 20

// response mirrors the detection service's JSON answer. Pointers distinguish
// missing fields from zero values.
type response struct {
	Result            *string  `json:"result"`
	Confidence        *float64 `json:"confidence"`
	Explanation       *string  `json:"explanation"`
	SourceCredibility *string  `json:"source_credibility"`
}

// Client calls the external detection service over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	Logger   *zap.Logger
}

var _ providers.Classifier = (*Client)(nil)

// NewClient creates a detection client bounded by cfg.ClassifierTimeout.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.ClassifierURL, "/"),
		apiKey:   cfg.ClassifierAPIKey,
		timeout:  cfg.ClassifierTimeout,
		http:     &http.Client{Timeout: cfg.ClassifierTimeout},
		Logger:   logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "http"
}

// Detect posts the text to {endpoint}/predict and validates the answer.
func (c *Client) Detect(ctx context.Context, req providers.DetectionRequest) (*providers.Verdict, error) {
	start := time.Now()
	verdict, err := c.detect(ctx, req)

	result := "ok"
	if err != nil {
		var cerr *providers.ClassifierError
		if errors.As(err, &cerr) {
			result = string(cerr.Kind)
		}
		c.Logger.Warn("Detection request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	}
	metrics.ClassifierDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return verdict, err
}

func (c *Client) detect(ctx context.Context, req providers.DetectionRequest) (*providers.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &providers.ClassifierError{Kind: providers.FailureTransport, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, &providers.ClassifierError{Kind: providers.FailureTransport, Err: fmt.Errorf("new request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.Logger.Debug("Calling detection service", zap.String("endpoint", c.endpoint), zap.Int("text_length", len(req.Text)))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &providers.ClassifierError{Kind: failureKind(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &providers.ClassifierError{Kind: providers.FailureStatus, StatusCode: resp.StatusCode}
	}

	var r response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&r); err != nil {
		if kind := failureKind(err); kind == providers.FailureTimeout {
			return nil, &providers.ClassifierError{Kind: kind, Err: err}
		}
		return nil, &providers.ClassifierError{Kind: providers.FailureSchema, Err: fmt.Errorf("decode response: %w", err)}
	}
	return r.verdict()
}

func (r response) verdict() (*providers.Verdict, error) {
	schemaErr := func(msg string) error {
		return &providers.ClassifierError{Kind: providers.FailureSchema, Err: errors.New(msg)}
	}
	if r.Result == nil || strings.TrimSpace(*r.Result) == "" {
		return nil, schemaErr("missing result")
	}
	if r.Confidence == nil {
		return nil, schemaErr("missing confidence")
	}
	if r.Explanation == nil {
		return nil, schemaErr("missing explanation")
	}

	v := &providers.Verdict{
		Result:      *r.Result,
		Confidence:  *r.Confidence,
		Explanation: *r.Explanation,
	}
	if r.SourceCredibility != nil {
		level, ok := models.ParseCredibility(*r.SourceCredibility)
		if !ok {
			return nil, schemaErr(fmt.Sprintf("unknown source_credibility %q", *r.SourceCredibility))
		}
		v.SourceCredibility = &level
	}
	return v, nil
}

func failureKind(err error) providers.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return providers.FailureTimeout
	}
	return providers.FailureTransport
}
