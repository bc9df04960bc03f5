package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"liyu1981.xyz/household-energy-service/pkg/household"
)

type RestfulServer struct {
	Server           *gin.Engine
	Core             *household.Core
	RateLimiterStore *household.RateLimiterStore
}

func (rs *RestfulServer) CheckHouseholdLimiter(name string) bool {
	return rs.RateLimiterStore.Allow(name)
}

func (rs *RestfulServer) SetLimiter(name string, householdRate float64, householdBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(name, rate.Limit(householdRate), householdBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rs.Server.GET("/active", rs.GetActive)
	rs.Server.PUT("/active", rs.SetActive)

	rs.Server.GET("/households", rs.ListHouseholds)
	rs.Server.POST("/households", rs.RegisterHousehold)
	rs.Server.DELETE("/households/:id", rs.DeleteHousehold)

	households := rs.Server.Group("/households/:name")
	{
		households.GET("", rs.FindHousehold)
		households.POST("/activate", rs.ActivateHousehold)
		households.GET("/readings", rs.GetReadings)
		households.GET("/readings/export", rs.ExportReadings)
		households.POST("/readings", rs.PostReading)
		households.POST("/limiter", rs.PostLimiter)
	}
}
