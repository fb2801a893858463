package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing api key header")
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.EcosystemType != "SEAGRASS" || req.ImageURL != "img://1" {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(domain.Analysis{
			ConfidenceScore:          0.7,
			HealthAssessment:         "patchy meadow",
			EstimatedCarbonPotential: 60,
			IsVerified:               true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", time.Second, nil)
	a, err := c.Analyze(context.Background(), "img://1", domain.EcosystemSeagrass)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !a.IsVerified || a.ConfidenceScore != 0.7 || a.EstimatedCarbonPotential != 60 {
		t.Fatalf("unexpected analysis %+v", a)
	}
}

func TestAnalyzeRejectsOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidenceScore": 3, "healthAssessment": "x", "estimatedCarbonPotential": 1, "isVerified": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, nil)
	if _, err := c.Analyze(context.Background(), "img", domain.EcosystemMangrove); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestAnalyzeDisabled(t *testing.T) {
	c := NewClient("", "", time.Second, nil)
	if _, err := c.Analyze(context.Background(), "img", domain.EcosystemMangrove); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestAnalyzeOpensCircuit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, nil)
	for i := 0; i < 5; i++ {
		if _, err := c.Analyze(context.Background(), "img", domain.EcosystemMangrove); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}
	if _, err := c.Analyze(context.Background(), "img", domain.EcosystemMangrove); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("server called %d times, want 5", calls)
	}
}
