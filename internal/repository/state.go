package repository

import (
	"encoding/json"
	"fmt"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/retry"
)

// StateKey names the single persisted registry document in every backend
const StateKey = "bluecarbon_mrv_v2"

// Encoding failures are permanent: retrying the same document cannot help.
func encodeState(state *domain.AppState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to marshal state: %w", err))
	}
	return data, nil
}

func decodeState(data []byte) (*domain.AppState, error) {
	var state domain.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to unmarshal state: %w", err))
	}
	state.Normalize()
	return &state, nil
}
