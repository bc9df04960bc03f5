package grpc

import (
	"context"
	"time"

	z "github.com/Oudwins/zog"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

type registerRequest struct {
	Name        string `zog:"name"`
	PersonCount int    `zog:"person_count"`
}

var registerRequestSchema = z.Struct(z.Shape{
	"Name":        z.String().Min(1).Required(),
	"PersonCount": z.Int().Required(),
})

func (s *HouseholdServer) RegisterHousehold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r registerRequest
	if err := registerRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	id, err := s.Core.Registry.Register(r.Name, r.PersonCount)
	if err != nil {
		return failure(MethodRegisterHousehold, err)
	}

	return reply(map[string]any{"id": id})
}

type idRequest struct {
	ID int `zog:"id"`
}

var idRequestSchema = z.Struct(z.Shape{
	"ID": z.Int().Required(),
})

func (s *HouseholdServer) DeleteHousehold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r idRequest
	if err := idRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	if err := s.Core.Registry.Delete(int64(r.ID)); err != nil {
		return failure(MethodDeleteHousehold, err)
	}

	return reply(nil)
}

func (s *HouseholdServer) ListHouseholds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	households, err := s.Core.Registry.List()
	if err != nil {
		return failure(MethodListHouseholds, err)
	}

	return reply(map[string]any{"households": summaryValues(households)})
}

type nameRequest struct {
	Name string `zog:"name"`
}

var nameRequestSchema = z.Struct(z.Shape{
	"Name": z.String().Required(),
})

func (s *HouseholdServer) FindHousehold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r nameRequest
	if err := nameRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	household, err := s.Core.Registry.FindByName(r.Name)
	if err != nil {
		return failure(MethodFindHousehold, err)
	}
	if household == nil {
		return reply(map[string]any{"found": false})
	}

	return reply(map[string]any{"found": true, "household": householdValue(household)})
}

func (s *HouseholdServer) ActivateHousehold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r nameRequest
	if err := nameRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	active, err := s.Core.Activate(r.Name)
	if err != nil {
		return failure(MethodActivateHousehold, err)
	}

	return reply(map[string]any{"active": activeValue(active)})
}

func (s *HouseholdServer) GetActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	active, err := s.Core.Tracker.GetActive()
	if err != nil {
		return failure(MethodGetActive, err)
	}
	if active == nil {
		return reply(map[string]any{"found": false})
	}

	return reply(map[string]any{"found": true, "active": activeValue(active)})
}

type setActiveRequest struct {
	ID   int    `zog:"id"`
	Name string `zog:"name"`
}

var setActiveRequestSchema = z.Struct(z.Shape{
	"ID":   z.Int().Required(),
	"Name": z.String().Required(),
})

func (s *HouseholdServer) SetActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r setActiveRequest
	if err := setActiveRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	if err := s.Core.Tracker.SetActive(int64(r.ID), r.Name); err != nil {
		return failure(MethodSetActive, err)
	}

	return reply(map[string]any{"active": activeValue(&models.ActiveHousehold{HouseholdID: int64(r.ID), Name: r.Name})})
}

type aggregateRequest struct {
	Household string    `zog:"household"`
	From      time.Time `zog:"from"`
	To        time.Time `zog:"to"`
}

var aggregateRequestSchema = z.Struct(z.Shape{
	"Household": z.String().Required(),
	"From":      z.Time(),
	"To":        z.Time(),
})

func (s *HouseholdServer) AggregateReadings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r aggregateRequest
	if err := aggregateRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	var readings []models.AggregatedReading
	var err error
	if r.From.IsZero() && r.To.IsZero() {
		readings, err = s.Core.Aggregator.Aggregate(r.Household)
	} else {
		readings, err = s.Core.Aggregator.AggregateBetween(r.Household, r.From, r.To)
	}
	if err != nil {
		return failure(MethodAggregateReadings, err)
	}

	return reply(map[string]any{"readings": readingValues(readings)})
}

type readingRequest struct {
	Household   string    `zog:"household"`
	Datetime    time.Time `zog:"datetime"`
	Temperature float64   `zog:"temperature"`
	Energy      float64   `zog:"energy"`
	Person      float64   `zog:"person"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"Household":   z.String().Required(),
	"Datetime":    z.Time().Required(),
	"Temperature": z.Float64().Required(),
	"Energy":      z.Float64().Required(),
	"Person":      z.Float64().Required(),
})

func (s *HouseholdServer) PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r readingRequest
	if err := readingRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	if err := s.Core.Ingestor.IngestReading(r.Household, &models.SensorReading{
		Datetime:    r.Datetime,
		Temperature: r.Temperature,
		Energy:      r.Energy,
		Person:      r.Person,
	}); err != nil {
		return failure(MethodPostReading, err)
	}

	return reply(nil)
}

type limiterRequest struct {
	Household string  `zog:"household"`
	Rate      float64 `zog:"rate"`
	Burst     int     `zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"Household": z.String().Required(),
	"Rate":      z.Float64().GTE(0).Required(),
	"Burst":     z.Int().GT(0).Required(),
})

func (s *HouseholdServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var r limiterRequest
	if err := limiterRequestSchema.Parse(req.AsMap(), &r); err != nil {
		return invalid(err)
	}

	s.SetLimiter(r.Household, r.Rate, r.Burst)

	return reply(nil)
}
