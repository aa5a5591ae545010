// Package scheduler implementa el colaborador externo de scheduling.
//
// El CEM delega en este servicio el cálculo de schedules de flexibilidad y
// el almacenamiento de series temporales (mediciones, previsiones, perfiles
// objetivo). La API es REST con payloads JSON y duraciones ISO 8601.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Schedule resultado de un schedule calculado por el servicio.
type Schedule struct {
	Values   []float64
	Start    time.Time
	Duration time.Duration
	Unit     string
}

// Client colaborador de scheduling.
//
// Todas las operaciones son bloqueantes y respetan el contexto. Un error
// nunca debe tumbar la sesión: el llamador reintenta en el próximo ciclo
// elegible.
type Client interface {
	// TriggerSchedule solicita el cálculo de un schedule para el sensor.
	// Retorna el id del schedule encolado.
	TriggerSchedule(ctx context.Context, sensorID int, start time.Time, duration time.Duration, flexModel, flexContext map[string]any) (string, error)

	// GetSchedule recupera los valores de un schedule ya calculado.
	GetSchedule(ctx context.Context, sensorID int, scheduleID string, duration time.Duration) (*Schedule, error)

	// GetSeries recupera una serie temporal almacenada.
	GetSeries(ctx context.Context, sensorID int, start time.Time, duration time.Duration, unit string, resolution time.Duration) ([]float64, error)

	// PostMeasurements almacena mediciones en el sensor.
	PostMeasurements(ctx context.Context, sensorID int, start time.Time, duration time.Duration, values []float64, unit string) error

	// UpdateFlexModel actualiza atributos del flex model del asset.
	UpdateFlexModel(ctx context.Context, assetID int, updates map[string]any) error
}

// HTTPClient implementación REST de Client.
//
// Los llamados se reintentan con backoff exponencial ante errores de red y
// respuestas 5xx. Un 4xx es permanente y corta el reintento.
type HTTPClient struct {
	baseURL string
	token   string

	http       *http.Client
	maxElapsed time.Duration
}

// NewHTTPClient crea un cliente REST hacia el scheduler.
//
// Token vacío deshabilita el header de autorización.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxElapsed: 2 * time.Minute,
	}
}

// TriggerSchedule implementa Client.
func (c *HTTPClient) TriggerSchedule(ctx context.Context, sensorID int, start time.Time, duration time.Duration, flexModel, flexContext map[string]any) (string, error) {
	body := map[string]any{
		"start":    start.Format(time.RFC3339),
		"duration": formatISODuration(duration),
	}
	if flexModel != nil {
		body["flex-model"] = flexModel
	}
	if flexContext != nil {
		body["flex-context"] = flexContext
	}

	path := fmt.Sprintf("/sensors/%d/schedules/trigger", sensorID)
	raw, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return "", fmt.Errorf("trigger schedule: %w", err)
	}

	var resp struct {
		Schedule string `json:"schedule"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode trigger response: %w", err)
	}
	if resp.Schedule == "" {
		return "", fmt.Errorf("trigger schedule: empty schedule id")
	}
	return resp.Schedule, nil
}

// GetSchedule implementa Client.
func (c *HTTPClient) GetSchedule(ctx context.Context, sensorID int, scheduleID string, duration time.Duration) (*Schedule, error) {
	path := fmt.Sprintf("/sensors/%d/schedules/%s", sensorID, url.PathEscape(scheduleID))
	query := url.Values{}
	query.Set("duration", formatISODuration(duration))

	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", scheduleID, err)
	}

	var resp struct {
		Values   []float64 `json:"values"`
		Start    string    `json:"start"`
		Duration string    `json:"duration"`
		Unit     string    `json:"unit"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode schedule response: %w", err)
	}

	start, err := time.Parse(time.RFC3339, resp.Start)
	if err != nil {
		return nil, fmt.Errorf("parse schedule start: %w", err)
	}
	dur, err := parseISODuration(resp.Duration)
	if err != nil {
		return nil, fmt.Errorf("parse schedule duration: %w", err)
	}

	return &Schedule{
		Values:   resp.Values,
		Start:    start,
		Duration: dur,
		Unit:     resp.Unit,
	}, nil
}

// GetSeries implementa Client.
func (c *HTTPClient) GetSeries(ctx context.Context, sensorID int, start time.Time, duration time.Duration, unit string, resolution time.Duration) ([]float64, error) {
	query := url.Values{}
	query.Set("sensor", fmt.Sprintf("%d", sensorID))
	query.Set("start", start.Format(time.RFC3339))
	query.Set("duration", formatISODuration(duration))
	query.Set("unit", unit)
	if resolution > 0 {
		query.Set("resolution", formatISODuration(resolution))
	}

	raw, err := c.do(ctx, http.MethodGet, "/sensors/data", query, nil)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}

	var resp struct {
		Values []float64 `json:"values"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode series response: %w", err)
	}
	return resp.Values, nil
}

// PostMeasurements implementa Client.
func (c *HTTPClient) PostMeasurements(ctx context.Context, sensorID int, start time.Time, duration time.Duration, values []float64, unit string) error {
	body := map[string]any{
		"sensor":   sensorID,
		"start":    start.Format(time.RFC3339),
		"duration": formatISODuration(duration),
		"values":   values,
		"unit":     unit,
	}

	if _, err := c.do(ctx, http.MethodPost, "/sensors/data", nil, body); err != nil {
		return fmt.Errorf("post measurements: %w", err)
	}
	return nil
}

// UpdateFlexModel implementa Client.
func (c *HTTPClient) UpdateFlexModel(ctx context.Context, assetID int, updates map[string]any) error {
	body := map[string]any{
		"flex-model": updates,
	}

	path := fmt.Sprintf("/assets/%d", assetID)
	if _, err := c.do(ctx, http.MethodPatch, path, nil, body); err != nil {
		return fmt.Errorf("update flex model: %w", err)
	}
	return nil
}

// do ejecuta la request con reintentos exponenciales.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	operation := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return raw, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("scheduler returned %d: %s", resp.StatusCode, raw)
		default:
			return nil, backoff.Permanent(fmt.Errorf("scheduler returned %d: %s", resp.StatusCode, raw))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed

	return backoff.RetryWithData(operation, backoff.WithContext(bo, ctx))
}
