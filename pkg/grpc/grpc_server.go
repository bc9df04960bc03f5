package grpc

import (
	"golang.org/x/time/rate"
	"liyu1981.xyz/household-energy-service/pkg/household"
)

type HouseholdServer struct {
	Core             *household.Core
	RateLimiterStore *household.RateLimiterStore
}

var _ HouseholdServiceServer = (*HouseholdServer)(nil)

func (s *HouseholdServer) CheckHouseholdLimiter(name string) bool {
	return s.RateLimiterStore.Allow(name)
}

func (s *HouseholdServer) SetLimiter(name string, householdRate float64, householdBurst int) {
	if s.RateLimiterStore == nil {
		return
	}
	s.RateLimiterStore.SetLimiter(name, rate.Limit(householdRate), householdBurst)
}
