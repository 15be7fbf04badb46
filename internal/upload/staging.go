package upload

import (
	"sync"

	"github.com/alnah/go-medbot/internal/recording"
)

// Compile-time interface implementation check.
var _ recording.Stager = (*Staging)(nil)

// Staging holds the most recent recording until the user confirms sending it.
// It is safe for concurrent use.
type Staging struct {
	mu    sync.Mutex
	asset *recording.WavAsset
}

// Stage replaces the staged asset.
func (s *Staging) Stage(asset *recording.WavAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = asset
}

// Staged returns the staged asset, if any.
func (s *Staging) Staged() (*recording.WavAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset, s.asset != nil
}

// Discard drops the staged asset only if it belongs to sessionID.
func (s *Staging) Discard(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset != nil && s.asset.SessionID() == sessionID {
		s.asset = nil
	}
}

// Take returns the staged asset and clears the staging area.
func (s *Staging) Take() (*recording.WavAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset == nil {
		return nil, ErrNothingStaged
	}
	a := s.asset
	s.asset = nil
	return a, nil
}
