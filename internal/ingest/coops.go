package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saltcreek/surfcast/internal/httputil"
	"github.com/saltcreek/surfcast/internal/models"
)

// TideClient fetches predicted water levels from the NOAA CO-OPS datagetter.
type TideClient struct {
	baseURL string
	client  *http.Client
}

func NewTideClient() *TideClient {
	return &TideClient{
		baseURL: "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter",
		client:  httputil.NewClient(),
	}
}

type tidePredictionJSON struct {
	Time   string `json:"t"`
	Height string `json:"v"`
	Type   string `json:"type,omitempty"`
}

type tideResponse struct {
	Predictions []tidePredictionJSON `json:"predictions"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FetchPredictions returns hourly continuous water-level predictions in feet
// (MLLW) for the station across [start, end].
func (c *TideClient) FetchPredictions(stationID string, start, end time.Time) ([]models.TidePrediction, *FetchResult, error) {
	body, result, err := c.fetch(stationID, start, end, "h")
	if err != nil {
		return nil, result, err
	}

	preds, parseErrs, err := parsePredictions(body, stationID)
	if err != nil {
		return nil, result, err
	}
	result.RecordCount = len(preds)
	result.ParseErrors = parseErrs
	if parseErrs > 0 {
		result.ParseError = fmt.Sprintf("%d predictions skipped", parseErrs)
	}
	return preds, result, nil
}

// FetchEvents returns the predicted high/low tide events for the station
// across [start, end].
func (c *TideClient) FetchEvents(stationID string, start, end time.Time) ([]models.TideEventRecord, *FetchResult, error) {
	body, result, err := c.fetch(stationID, start, end, "hilo")
	if err != nil {
		return nil, result, err
	}

	var data tideResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, result, fmt.Errorf("unmarshal tide events: %w", err)
	}
	if data.Error != nil {
		return nil, result, fmt.Errorf("coops: %s", data.Error.Message)
	}

	now := time.Now().UTC()
	var events []models.TideEventRecord
	for _, p := range data.Predictions {
		ts, err := time.Parse("2006-01-02 15:04", p.Time)
		if err != nil {
			result.ParseErrors++
			continue
		}
		height, err := strconv.ParseFloat(p.Height, 64)
		if err != nil {
			result.ParseErrors++
			continue
		}
		kind := "low"
		if p.Type == "H" {
			kind = "high"
		}
		events = append(events, models.TideEventRecord{
			StationID: stationID,
			TimeUTC:   ts.UTC(),
			Kind:      kind,
			HeightFt:  height,
			FetchedAt: now,
		})
	}
	result.RecordCount = len(events)
	return events, result, nil
}

func (c *TideClient) fetch(stationID string, start, end time.Time, interval string) ([]byte, *FetchResult, error) {
	params := url.Values{}
	params.Set("begin_date", start.UTC().Format("20060102 15:04"))
	params.Set("end_date", end.UTC().Format("20060102 15:04"))
	params.Set("station", stationID)
	params.Set("product", "predictions")
	params.Set("datum", "MLLW")
	params.Set("time_zone", "gmt")
	params.Set("interval", interval)
	params.Set("units", "english")
	params.Set("format", "json")
	params.Set("application", "surfcast")

	requestURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	result := &FetchResult{}

	var body []byte
	operation := func() error {
		resp, err := c.client.Get(requestURL)
		if err != nil {
			return fmt.Errorf("fetch predictions: %w", err)
		}
		defer resp.Body.Close()
		result.HTTPStatus = resp.StatusCode

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("coops unavailable: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch predictions: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, result, err
	}
	result.ResponseSize = len(body)
	return body, result, nil
}

func parsePredictions(body []byte, stationID string) ([]models.TidePrediction, int, error) {
	var data tideResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, 0, fmt.Errorf("unmarshal predictions: %w", err)
	}
	if data.Error != nil {
		return nil, 0, fmt.Errorf("coops: %s", data.Error.Message)
	}

	now := time.Now().UTC()
	parseErrs := 0
	var preds []models.TidePrediction
	for _, p := range data.Predictions {
		ts, err := time.Parse("2006-01-02 15:04", p.Time)
		if err != nil {
			parseErrs++
			continue
		}
		height, err := strconv.ParseFloat(p.Height, 64)
		if err != nil {
			parseErrs++
			continue
		}
		preds = append(preds, models.TidePrediction{
			StationID: stationID,
			TimeUTC:   ts.UTC(),
			HeightFt:  height,
			FetchedAt: now,
		})
	}
	return preds, parseErrs, nil
}
