// Package scoring calls the external image-analysis service that scores
// restoration photos.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/circuitbreaker"
)

var (
	// ErrDisabled is returned when no endpoint is configured
	ErrDisabled = errors.New("scorer disabled")
	// ErrCircuitOpen is returned while the breaker rejects calls
	ErrCircuitOpen = errors.New("scorer circuit open")
)

// Client scores photos through a JSON-over-HTTP endpoint
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
}

type analyzeRequest struct {
	ImageURL      string `json:"imageUrl"`
	EcosystemType string `json:"ecosystemType"`
	Prompt        string `json:"prompt"`
}

// NewClient creates a scorer client. An empty endpoint yields a client that always returns ErrDisabled.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("scorer circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		logger:  logger,
	}
}

// Analyze implements domain.Scorer
func (c *Client) Analyze(ctx context.Context, imageRef string, ecosystem domain.EcosystemType) (*domain.Analysis, error) {
	if c.endpoint == "" {
		return nil, ErrDisabled
	}
	var analysis *domain.Analysis
	err := c.breaker.Execute(func() error {
		var callErr error
		analysis, callErr = c.call(ctx, imageRef, ecosystem)
		return callErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func (c *Client) call(ctx context.Context, imageRef string, ecosystem domain.EcosystemType) (*domain.Analysis, error) {
	body, err := json.Marshal(analyzeRequest{
		ImageURL:      imageRef,
		EcosystemType: string(ecosystem),
		Prompt:        prompt(ecosystem),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scorer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scorer returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var analysis domain.Analysis
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("failed to decode scorer response: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("scorer response out of range: %w", err)
	}

	c.logger.Debug("photo scored",
		slog.String("ecosystem", string(ecosystem)),
		slog.Float64("confidence", analysis.ConfidenceScore),
		slog.Bool("verified", analysis.IsVerified),
	)
	return &analysis, nil
}

func prompt(ecosystem domain.EcosystemType) string {
	return fmt.Sprintf("Analyze this %s site. Return JSON with confidenceScore (0-1), "+
		"healthAssessment (short summary), estimatedCarbonPotential (carbon tons per hectare) "+
		"and isVerified (true if the image matches the ecosystem type).", ecosystem)
}
