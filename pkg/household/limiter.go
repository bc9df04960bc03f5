package household

import (
	"sync"

	"golang.org/x/time/rate"
	"liyu1981.xyz/household-energy-service/pkg/common"
)

// RateLimiterStore hands out one token bucket per household, keyed by
// canonical name. Unknown households get the default rate and burst.
type RateLimiterStore struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

func NewRateLimiterStore(defaultRate rate.Limit, defaultBurst int) *RateLimiterStore {
	return &RateLimiterStore{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
	}
}

func (s *RateLimiterStore) GetLimiter(household string) *rate.Limiter {
	key := common.CanonicalName(household)

	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(s.defaultRate, s.defaultBurst)
		s.limiters[key] = limiter
	}
	return limiter
}

func (s *RateLimiterStore) SetLimiter(household string, householdRate rate.Limit, householdBurst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters[common.CanonicalName(household)] = rate.NewLimiter(householdRate, householdBurst)
}

// Allow consumes one token for household. A nil store never throttles.
func (s *RateLimiterStore) Allow(household string) bool {
	if s == nil {
		return true
	}
	return s.GetLimiter(household).Allow()
}

// Forget drops a household's limiter so a later household with the same
// name starts from the defaults. A nil store is a no-op.
func (s *RateLimiterStore) Forget(household string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, common.CanonicalName(household))
}
