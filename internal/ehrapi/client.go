// Package ehrapi provides the HTTP client for the EHR backend REST contract:
// patient/provider search and lookup, provider schedules, and appointment
// create/update/delete. The backend is a fixed external collaborator; all
// field-name variance is normalized at this boundary.
package ehrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclinic/ehr-shell/pkg/logging"
)

// Client is an HTTP client for the EHR backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer

	// CSRF header attached to every mutating request when a token is present.
	csrfHeader string
	csrfToken  string
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCSRF sets the CSRF header name and token sourced from page metadata.
func WithCSRF(header, token string) ClientOption {
	return func(c *Client) {
		if header != "" {
			c.csrfHeader = header
		}
		c.csrfToken = token
	}
}

// WithTracer sets a custom tracer.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logging.Default(),
		tracer:     otel.Tracer("ehrshell.internal.ehrapi"),
		csrfHeader: "X-CSRF-TOKEN",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchPatients queries /api/patients/search.
func (c *Client) SearchPatients(ctx context.Context, q PatientSearchQuery) (*PatientSearchResult, error) {
	ctx, span := c.tracer.Start(ctx, "ehrapi.search_patients")
	defer span.End()

	params := url.Values{}
	setIf := func(key, val string) {
		if val != "" {
			params.Set(key, val)
		}
	}
	setIf("firstName", q.FirstName)
	setIf("lastName", q.LastName)
	setIf("dob", q.DOB)
	setIf("phone", q.Phone)
	setIf("email", q.Email)
	setIf("city", q.City)
	setIf("state", q.State)
	setIf("zip", q.Zip)
	setIf("sortBy", q.SortBy)
	setIf("sortDir", q.SortDir)
	params.Set("page", strconv.Itoa(q.Page))
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}

	var result PatientSearchResult
	if err := c.getJSON(ctx, "/api/patients/search?"+params.Encode(), &result); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &result, nil
}

// SearchProviders queries /api/providers/search.
func (c *Client) SearchProviders(ctx context.Context, q ProviderSearchQuery) (*ProviderSearchResult, error) {
	ctx, span := c.tracer.Start(ctx, "ehrapi.search_providers")
	defer span.End()

	params := url.Values{}
	if q.FirstName != "" {
		params.Set("firstName", q.FirstName)
	}
	if q.LastName != "" {
		params.Set("lastName", q.LastName)
	}
	if q.Specialty != "" {
		params.Set("specialty", q.Specialty)
	}
	if q.InPracticeOnly {
		params.Set("inPracticeOnly", "true")
	}
	if q.ActiveOnly {
		params.Set("activeOnly", "true")
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}

	var result ProviderSearchResult
	if err := c.getJSON(ctx, "/api/providers/search?"+params.Encode(), &result); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &result, nil
}

// GetPatient fetches a single patient by id.
func (c *Client) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	if err := c.getJSON(ctx, fmt.Sprintf("/api/patients/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProvider fetches a single provider by id.
func (c *Client) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	var p Provider
	if err := c.getJSON(ctx, fmt.Sprintf("/api/providers/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ScheduleEvents fetches a provider's calendar events for the window.
// start and end are ISO dates or datetimes as the calendar widget supplies them.
func (c *Client) ScheduleEvents(ctx context.Context, providerID int64, start, end string) ([]ScheduleEvent, error) {
	ctx, span := c.tracer.Start(ctx, "ehrapi.schedule_events")
	defer span.End()

	params := url.Values{}
	if start != "" {
		params.Set("start", start)
	}
	if end != "" {
		params.Set("end", end)
	}
	path := fmt.Sprintf("/api/schedule/provider/%d", providerID)
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}

	var events []ScheduleEvent
	if err := c.getJSON(ctx, path, &events); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return events, nil
}

// GetAppointment fetches the full appointment DTO by id.
func (c *Client) GetAppointment(ctx context.Context, id int64) (*AppointmentDTO, error) {
	var dto AppointmentDTO
	if err := c.getJSON(ctx, fmt.Sprintf("/api/schedule/appointment/%d", id), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// CreateAppointment creates a new appointment via POST /api/schedule.
func (c *Client) CreateAppointment(ctx context.Context, payload AppointmentPayload) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPost, "/api/schedule", payload)
}

// UpdateAppointment updates an existing appointment via PUT /api/schedule/{id}.
func (c *Client) UpdateAppointment(ctx context.Context, id int64, payload AppointmentPayload) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPut, fmt.Sprintf("/api/schedule/%d", id), payload)
}

// UpdateAppointmentTiming updates just the date/time fields after a calendar
// drag-move or resize.
func (c *Client) UpdateAppointmentTiming(ctx context.Context, id int64, timing TimingUpdate) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPut, fmt.Sprintf("/api/schedule/%d", id), timing)
}

// DeleteAppointment removes an appointment via DELETE /api/schedule/{id}.
func (c *Client) DeleteAppointment(ctx context.Context, id int64) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodDelete, fmt.Sprintf("/api/schedule/%d", id), nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("ehrapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ehrapi: request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ehrapi: %s returned status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ehrapi: decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) mutate(ctx context.Context, method, path string, payload any) (*MutationResult, error) {
	ctx, span := c.tracer.Start(ctx, "ehrapi.mutate")
	defer span.End()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ehrapi: marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ehrapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" {
		req.Header.Set(c.csrfHeader, c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ehrapi: %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	var result MutationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// non-JSON error bodies still map to a failed mutation
		result = MutationResult{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("mutation rejected", "method", method, "path", path, "status", resp.StatusCode, "error", result.Error)
		return &result, fmt.Errorf("ehrapi: %s %s returned status %d", method, path, resp.StatusCode)
	}
	return &result, nil
}
