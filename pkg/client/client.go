// Package client talks to the household REST API.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

type errorBody struct {
	Error json.RawMessage `json:"error"`
	Code  string          `json:"code"`
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
	}
}

func toAPIError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Code = body.Code
		var message string
		if err := json.Unmarshal(body.Error, &message); err == nil {
			apiErr.Message = message
		} else if len(body.Error) > 0 {
			apiErr.Message = string(body.Error)
		}
	}
	return apiErr
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return toAPIError(resp)
	}
	return nil
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) Health() error {
	return check(c.http.R().Get("/healthz"))
}

func (c *Client) Register(name string, personCount int) (int64, error) {
	var result struct {
		ID int64 `json:"id"`
	}
	resp, err := c.http.R().
		SetBody(map[string]any{"name": name, "person_count": personCount}).
		SetResult(&result).
		Post("/households")
	if err := check(resp, err); err != nil {
		return 0, err
	}
	return result.ID, nil
}

func (c *Client) Delete(id int64) error {
	return check(c.http.R().
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Delete("/households/{id}"))
}

func (c *Client) List() ([]models.HouseholdSummary, error) {
	var result []models.HouseholdSummary
	resp, err := c.http.R().SetResult(&result).Get("/households")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return result, nil
}

// Find returns nil without error when the household does not exist.
func (c *Client) Find(name string) (*models.Household, error) {
	var result models.Household
	resp, err := c.http.R().
		SetPathParam("name", name).
		SetResult(&result).
		Get("/households/{name}")
	if err := check(resp, err); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (c *Client) Activate(name string) (*models.ActiveHousehold, error) {
	var result models.ActiveHousehold
	resp, err := c.http.R().
		SetPathParam("name", name).
		SetResult(&result).
		Post("/households/{name}/activate")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

// Active returns nil without error when no household is active.
func (c *Client) Active() (*models.ActiveHousehold, error) {
	var result models.ActiveHousehold
	resp, err := c.http.R().SetResult(&result).Get("/active")
	if err := check(resp, err); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (c *Client) SetActive(id int64, name string) error {
	return check(c.http.R().
		SetBody(map[string]any{"id": id, "name": name}).
		Put("/active"))
}

// Readings fetches the aggregation; zero bounds are left open.
func (c *Client) Readings(name string, from, to time.Time) ([]models.AggregatedReading, error) {
	req := c.http.R().SetPathParam("name", name)
	if !from.IsZero() {
		req.SetQueryParam("from", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		req.SetQueryParam("to", to.Format(time.RFC3339))
	}

	var result []models.AggregatedReading
	resp, err := req.SetResult(&result).Get("/households/{name}/readings")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Export(name string) ([]byte, error) {
	resp, err := c.http.R().
		SetPathParam("name", name).
		Get("/households/{name}/readings/export")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) PostReading(name string, reading *models.SensorReading) error {
	return check(c.http.R().
		SetPathParam("name", name).
		SetBody(map[string]any{
			"datetime":    reading.Datetime.Format(time.RFC3339Nano),
			"temperature": reading.Temperature,
			"energy":      reading.Energy,
			"person":      reading.Person,
		}).
		Post("/households/{name}/readings"))
}

func (c *Client) SetLimiter(name string, rate float64, burst int) error {
	return check(c.http.R().
		SetPathParam("name", name).
		SetBody(map[string]any{"rate": rate, "burst": burst}).
		Post("/households/{name}/limiter"))
}
