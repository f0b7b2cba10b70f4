package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"ai-sqlpilot-be/pkg/agent"
)

// SuspendedRun is a pipeline parked at a stage boundary, waiting for the
// caller to resume it. Persisted counts how many of the run's messages have
// already been written to the store.
type SuspendedRun struct {
	State     agent.State
	Node      agent.NodeName
	Persisted int
}

type SuspendedRunRepository struct {
	cache *cache.Cache
}

func NewSuspendedRunRepository() *SuspendedRunRepository {
	// Suspended runs expire after 1 hour; expired items purge every 10
	// minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SuspendedRunRepository{cache: c}
}

func (r *SuspendedRunRepository) Save(sessionID string, run *SuspendedRun) {
	r.cache.Set(sessionID, run, cache.DefaultExpiration)
}

func (r *SuspendedRunRepository) Get(sessionID string) (*SuspendedRun, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*SuspendedRun), true
	}
	return nil, false
}

func (r *SuspendedRunRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
