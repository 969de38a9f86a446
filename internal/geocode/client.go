package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"geoflow/internal/domain"
	"geoflow/internal/platform/metrics"
)

// Client resolves a postal code into geo data using an upstream service.
type Client interface {
	Lookup(ctx context.Context, zip string) (domain.GeoData, error)
}

// HTTPClient calls the OpenWeather-compatible endpoint
// GET {base}/data/2.5/weather?zip={zip}&appid={key}. It performs exactly one
// call per Lookup: no retries, and no timeout beyond the injected client's.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// NewHTTPClient constructs the upstream client. A nil httpClient falls back
// to http.DefaultClient, matching the platform-default timeout behavior.
func NewHTTPClient(baseURL, apiKey string, httpClient *http.Client, m *metrics.Metrics) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		metrics:    m,
		tracer:     otel.Tracer("geoflow/geocode"),
	}
}

type weatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

// Lookup performs the upstream call. The zip and credential are passed
// through as opaque strings, query-escaped only.
func (c *HTTPClient) Lookup(ctx context.Context, zip string) (domain.GeoData, error) {
	ctx, span := c.tracer.Start(ctx, "geocode.lookup")
	defer span.End()

	q := url.Values{}
	q.Set("zip", zip)
	q.Set("appid", c.apiKey)
	reqURL := c.baseURL + "/data/2.5/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.GeoData{}, fmt.Errorf("build geocode request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveGeocode("transport_error", time.Since(start).Seconds())
		span.RecordError(err)
		return domain.GeoData{}, fmt.Errorf("call geocode upstream: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveGeocode(strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK:
		var payload weatherResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return domain.GeoData{}, fmt.Errorf("decode geocode response: %w", err)
		}
		return domain.GeoData{
			Lat:      payload.Coord.Lat,
			Lon:      payload.Coord.Lon,
			Timezone: payload.Timezone,
			CityName: payload.Name,
		}, nil
	case http.StatusNotFound:
		var body struct {
			Message string `json:"message"`
		}
		// Best effort: a 404 without a decodable body still maps to not found.
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return domain.GeoData{}, &UpstreamError{Category: CategoryNotFound, Message: body.Message, Status: resp.StatusCode}
	case http.StatusUnauthorized:
		return domain.GeoData{}, &UpstreamError{Category: CategoryUnauthorized, Message: "invalid API key", Status: resp.StatusCode}
	default:
		return domain.GeoData{}, fmt.Errorf("geocode upstream returned status %d", resp.StatusCode)
	}
}
