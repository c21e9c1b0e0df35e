package session

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/trustloop/internal/models"
)

// formatVersion is bumped when the on-disk layout changes incompatibly.
const formatVersion = 1

// persistedState is the on-disk representation of a session.
type persistedState struct {
	Version int                 `json:"version"`
	State   models.SessionState `json:"state"`
}

// Encode serializes state in the persisted layout.
func Encode(state models.SessionState) ([]byte, error) {
	data, err := json.MarshalIndent(persistedState{Version: formatVersion, State: state}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling session state: %w", err)
	}
	return data, nil
}

// Decode parses data written by Encode. Malformed input, unknown versions
// and out-of-range values wrap ErrCorruptState.
func Decode(data []byte) (models.SessionState, error) {
	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return models.SessionState{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if ps.Version != formatVersion {
		return models.SessionState{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptState, ps.Version)
	}
	s := ps.State
	if s.Confidence < models.MinConfidence || s.Confidence > models.MaxConfidence {
		return models.SessionState{}, fmt.Errorf("%w: confidence %d out of range", ErrCorruptState, s.Confidence)
	}
	if s.TurnCount < 0 || s.Streak < 0 || s.ReputationDebt < 0 || s.DecayAccumulator < 0 || s.DecayAccumulator >= 1 {
		return models.SessionState{}, fmt.Errorf("%w: negative counters or accumulator out of [0,1)", ErrCorruptState)
	}
	s.Normalize()
	return s, nil
}
