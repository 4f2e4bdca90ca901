package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saltcreek/surfcast/internal/httputil"
	"github.com/saltcreek/surfcast/internal/surf"
)

// FetchResult captures metadata about one upstream call for ingest-run
// bookkeeping.
type FetchResult struct {
	HTTPStatus   int
	ResponseSize int
	RecordCount  int
	ParseErrors  int
	ParseError   string
}

// MarineClient fetches raw marine forecast grids from the NWS gridpoint API
// and converts the swell layers into per-instant component sets.
type MarineClient struct {
	baseURL string
	client  *http.Client
}

func NewMarineClient() *MarineClient {
	return &MarineClient{
		baseURL: "https://api.weather.gov",
		client:  httputil.NewClient(),
	}
}

type gridValue struct {
	ValidTime string   `json:"validTime"`
	Value     *float64 `json:"value"`
}

type gridLayer struct {
	UOM    string      `json:"uom"`
	Values []gridValue `json:"values"`
}

type gridpointResponse struct {
	Properties struct {
		UpdateTime              string    `json:"updateTime"`
		WavePeriod              gridLayer `json:"wavePeriod"`
		WavePeriod2             gridLayer `json:"wavePeriod2"`
		PrimarySwellHeight      gridLayer `json:"primarySwellHeight"`
		PrimarySwellDirection   gridLayer `json:"primarySwellDirection"`
		SecondarySwellHeight    gridLayer `json:"secondarySwellHeight"`
		SecondarySwellDirection gridLayer `json:"secondarySwellDirection"`
	} `json:"properties"`
}

// FetchSwell returns hourly swell component sets for the gridpoint, from the
// first forecast hour out to the horizon. Instants where the grid carries no
// usable primary swell still appear in the series as empty sets so the
// engine reports them unavailable instead of dropping them.
func (c *MarineClient) FetchSwell(office string, gridX, gridY int, horizon time.Duration) ([]surf.SwellComponentSet, *FetchResult, error) {
	url := fmt.Sprintf("%s/gridpoints/%s/%d,%d", c.baseURL, office, gridX, gridY)
	result := &FetchResult{}

	var body []byte
	operation := func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", httputil.UserAgent)
		req.Header.Set("Accept", "application/geo+json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch gridpoint: %w", err)
		}
		defer resp.Body.Close()
		result.HTTPStatus = resp.StatusCode

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("gridpoint unavailable: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch gridpoint: status %d: %s", resp.StatusCode, string(b)))
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

	var data gridpointResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, result, fmt.Errorf("unmarshal gridpoint: %w", err)
	}

	sets, parseErrs := buildComponentSets(data, horizon)
	result.RecordCount = len(sets)
	result.ParseErrors = parseErrs
	if parseErrs > 0 {
		result.ParseError = fmt.Sprintf("%d grid values had unparseable valid times", parseErrs)
	}
	return sets, result, nil
}

// buildComponentSets expands the swell grid layers onto a common hourly
// timeline and pairs heights with their period and direction layers.
func buildComponentSets(data gridpointResponse, horizon time.Duration) ([]surf.SwellComponentSet, int) {
	p := data.Properties
	parseErrs := 0

	expand := func(layer gridLayer) map[time.Time]float64 {
		series := make(map[time.Time]float64)
		for _, v := range layer.Values {
			if v.Value == nil {
				continue
			}
			start, dur, err := parseValidTime(v.ValidTime)
			if err != nil {
				parseErrs++
				continue
			}
			for ts := start; ts.Before(start.Add(dur)); ts = ts.Add(time.Hour) {
				series[ts] = *v.Value
			}
		}
		return series
	}

	primaryH := expand(p.PrimarySwellHeight)
	primaryD := expand(p.PrimarySwellDirection)
	periods := expand(p.WavePeriod)
	secondaryH := expand(p.SecondarySwellHeight)
	secondaryD := expand(p.SecondarySwellDirection)
	periods2 := expand(p.WavePeriod2)

	if len(primaryH) == 0 {
		return nil, parseErrs
	}

	instants := make([]time.Time, 0, len(primaryH))
	for ts := range primaryH {
		instants = append(instants, ts)
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })

	cutoff := instants[0].Add(horizon)
	var sets []surf.SwellComponentSet
	for _, ts := range instants {
		if ts.After(cutoff) {
			break
		}
		var components []surf.SwellComponent
		if h, ok := primaryH[ts]; ok {
			if period, ok := periods[ts]; ok {
				components = append(components, surf.SwellComponent{
					HeightM:      h,
					PeriodS:      period,
					DirectionDeg: primaryD[ts],
				})
			}
		}
		if h, ok := secondaryH[ts]; ok {
			if period, ok := periods2[ts]; ok {
				components = append(components, surf.SwellComponent{
					HeightM:      h,
					PeriodS:      period,
					DirectionDeg: secondaryD[ts],
				})
			}
		}
		sets = append(sets, surf.NewSwellComponentSet(ts, components))
	}
	return sets, parseErrs
}

// parseValidTime splits the gridpoint "start/ISO-duration" form, e.g.
// "2026-08-31T06:00:00+00:00/PT3H".
func parseValidTime(s string) (time.Time, time.Duration, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("malformed validTime %q", s)
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse validTime start: %w", err)
	}
	dur, err := parseISODuration(parts[1])
	if err != nil {
		return time.Time{}, 0, err
	}
	return start.UTC(), dur, nil
}

// parseISODuration handles the day/hour/minute subset the gridpoint API
// emits (P1D, PT3H, P1DT6H, PT30M).
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("malformed duration %q", orig)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("malformed duration %q", orig)
			}
			num = ""
			switch r {
			case 'D':
				total += time.Duration(n) * 24 * time.Hour
			case 'H':
				total += time.Duration(n) * time.Hour
			case 'M':
				if !inTime {
					return 0, fmt.Errorf("month durations unsupported in %q", orig)
				}
				total += time.Duration(n) * time.Minute
			default:
				return 0, fmt.Errorf("malformed duration %q", orig)
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("malformed duration %q", orig)
	}
	return total, nil
}
