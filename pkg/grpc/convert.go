package grpc

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/household"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

const (
	fieldStatus    = "status"
	fieldHousehold = "household"

	CodeOK              = "ok"
	CodeAlreadyExists   = "already_exists"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// ErrorCode classifies a core error for the response status.
func ErrorCode(err error) string {
	switch {
	case household.IsDuplicateName(err):
		return CodeAlreadyExists
	case errors.Is(err, household.ErrEmptyName):
		return CodeInvalidArgument
	case errors.Is(err, household.ErrHouseholdNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

func statusField(success bool, message, code string) map[string]any {
	return map[string]any{"success": success, "message": message, "code": code}
}

func reply(payload map[string]any) (*structpb.Struct, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload[fieldStatus] = statusField(true, "OK", CodeOK)
	return structpb.NewStruct(payload)
}

func failure(method string, err error) (*structpb.Struct, error) {
	code := ErrorCode(err)
	if code == CodeInternal {
		common.GetLoggerWith(common.LoggerNameGrpcServer).Error("Request failed",
			zap.String("method", method),
			zap.Error(err),
		)
	}
	return structpb.NewStruct(map[string]any{fieldStatus: statusField(false, err.Error(), code)})
}

func invalid(issues any) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldStatus: statusField(false, fmt.Sprintf("validation error: %v", issues), CodeInvalidArgument),
	})
}

func householdValue(h *models.Household) map[string]any {
	return map[string]any{"id": h.ID, "name": h.Name, "current_person": h.CurrentPerson}
}

func activeValue(a *models.ActiveHousehold) map[string]any {
	return map[string]any{"id": a.HouseholdID, "name": a.Name}
}

func summaryValues(list []models.HouseholdSummary) []any {
	return common.Mapper(list, func(s models.HouseholdSummary) any {
		return map[string]any{"id": s.ID, "name": s.Name}
	})
}

func readingValues(readings []models.AggregatedReading) []any {
	return common.Mapper(readings, func(r models.AggregatedReading) any {
		return map[string]any{
			"datetime":    r.Datetime.UTC().Format(time.RFC3339Nano),
			"household":   r.Household,
			"temperature": r.Temperature,
			"energy":      r.Energy,
			"person":      r.Person,
		}
	})
}

// StatusOf extracts the status block of a response.
func StatusOf(resp *structpb.Struct) (success bool, message, code string) {
	st := resp.GetFields()[fieldStatus].GetStructValue().GetFields()
	return st["success"].GetBoolValue(), st["message"].GetStringValue(), st["code"].GetStringValue()
}
