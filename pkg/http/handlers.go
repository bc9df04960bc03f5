package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/export"
	"liyu1981.xyz/household-energy-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

type RegisterRequest struct {
	Name        string `json:"name" zog:"name"`
	PersonCount int    `json:"person_count" zog:"person_count"`
}

var registerRequestSchema = z.Struct(z.Shape{
	"Name":        z.String().Min(1).Required(),
	"PersonCount": z.Int().Required(),
})

func (rs *RestfulServer) RegisterHousehold(c *gin.Context) {
	var req RegisterRequest
	if err := registerRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	id, err := rs.Core.Registry.Register(req.Name, req.PersonCount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (rs *RestfulServer) ListHouseholds(c *gin.Context) {
	households, err := rs.Core.Registry.List()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, households)
}

func (rs *RestfulServer) FindHousehold(c *gin.Context) {
	name := c.Param("name")

	household, err := rs.Core.Registry.FindByName(name)
	if err != nil {
		respondError(c, err)
		return
	}
	if household == nil {
		respondNotFound(c, fmt.Sprintf("household %q not found", common.CanonicalName(name)))
		return
	}

	c.JSON(http.StatusOK, household)
}

func (rs *RestfulServer) DeleteHousehold(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondInvalid(c, fmt.Sprintf("invalid household id %q", c.Param("id")))
		return
	}

	if err := rs.Core.Registry.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) ActivateHousehold(c *gin.Context) {
	active, err := rs.Core.Activate(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, active)
}

func (rs *RestfulServer) GetActive(c *gin.Context) {
	active, err := rs.Core.Tracker.GetActive()
	if err != nil {
		respondError(c, err)
		return
	}
	if active == nil {
		respondNotFound(c, "no active household")
		return
	}

	c.JSON(http.StatusOK, active)
}

type SetActiveRequest struct {
	ID   int    `json:"id" zog:"id"`
	Name string `json:"name" zog:"name"`
}

var setActiveRequestSchema = z.Struct(z.Shape{
	"ID":   z.Int().Required(),
	"Name": z.String().Required(),
})

func (rs *RestfulServer) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := setActiveRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	if err := rs.Core.Tracker.SetActive(int64(req.ID), req.Name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ActiveHousehold{HouseholdID: int64(req.ID), Name: req.Name})
}

type ReadingsQuery struct {
	From time.Time `zog:"from"`
	To   time.Time `zog:"to"`
}

var readingsQuerySchema = z.Struct(z.Shape{
	"From": z.Time(),
	"To":   z.Time(),
})

func (rs *RestfulServer) GetReadings(c *gin.Context) {
	name := c.Param("name")

	var query ReadingsQuery
	if err := readingsQuerySchema.Parse(zhttp.Request(c.Request), &query); err != nil {
		respondInvalid(c, err)
		return
	}

	var readings []models.AggregatedReading
	var err error
	if query.From.IsZero() && query.To.IsZero() {
		readings, err = rs.Core.Aggregator.Aggregate(name)
	} else {
		readings, err = rs.Core.Aggregator.AggregateBetween(name, query.From, query.To)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, readings)
}

func (rs *RestfulServer) ExportReadings(c *gin.Context) {
	name := c.Param("name")

	readings, err := rs.Core.Aggregator.Aggregate(name)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := export.ReadingsXLSX(name, readings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SheetName(name)+".xlsx"))
	c.Data(http.StatusOK, export.ContentTypeXLSX, data)
}

type ReadingRequest struct {
	Datetime    time.Time `json:"datetime" zog:"datetime"`
	Temperature float64   `json:"temperature" zog:"temperature"`
	Energy      float64   `json:"energy" zog:"energy"`
	Person      float64   `json:"person" zog:"person"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"Datetime":    z.Time().Required(),
	"Temperature": z.Float64().Required(),
	"Energy":      z.Float64().Required(),
	"Person":      z.Float64().Required(),
})

func (rs *RestfulServer) PostReading(c *gin.Context) {
	name := c.Param("name")

	if !rs.CheckHouseholdLimiter(name) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": CodeRateLimited})
		return
	}

	var req ReadingRequest
	if err := readingRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	if err := rs.Core.Ingestor.IngestReading(name, &models.SensorReading{
		Datetime:    req.Datetime,
		Temperature: req.Temperature,
		Energy:      req.Energy,
		Person:      req.Person,
	}); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type LimiterRequest struct {
	Rate  float64 `json:"rate" zog:"rate"`
	Burst int     `json:"burst" zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"Rate":  z.Float64().GTE(0).Required(),
	"Burst": z.Int().GT(0).Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	name := c.Param("name")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	rs.SetLimiter(name, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	if err := rs.Core.Db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
