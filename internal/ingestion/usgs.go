package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found in catalog")
	ErrNoPagerData   = errors.New("no PAGER data for event")
)

// EventCatalog resolves an event id to authoritative catalog metadata.
type EventCatalog interface {
	EventByID(ctx context.Context, id string) (*models.Event, error)
}

// PagerSource returns the PAGER loss prediction for a catalog event.
type PagerSource interface {
	PagerExposure(ctx context.Context, ev *models.Event) (*models.Exposure, error)
}

type usgsDetail struct {
	ID         string          `json:"id"`
	Properties usgsDetailProps `json:"properties"`
	Geometry   usgsGeometry    `json:"geometry"`
}
type usgsDetailProps struct {
	Mag      float64                  `json:"mag"`
	Time     int64                    `json:"time"` // unix millis
	Title    string                   `json:"title"`
	Products map[string][]usgsProduct `json:"products"`
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}
type usgsProduct struct {
	Code     string                 `json:"code"`
	Contents map[string]usgsContent `json:"contents"`
}
type usgsContent struct {
	URL string `json:"url"`
}

type pagerLosses struct {
	EmpiricalFatality struct {
		TotalFatalities int64 `json:"total_fatalities"`
	} `json:"empirical_fatality"`
}

type pagerExposures struct {
	PopulationExposure struct {
		MMI                []int   `json:"mmi"`
		AggregatedExposure []int64 `json:"aggregated_exposure"`
	} `json:"population_exposure"`
}

const (
	pagerProduct      = "losspager"
	pagerLossesPath   = "json/losses.json"
	pagerExposurePath = "json/exposures.json"
)

// USGSClient talks to the FDSN event detail endpoint and the PAGER product
// files it links to. It implements both EventCatalog and PagerSource.
type USGSClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	pagers map[string]map[string]usgsContent // event id -> losspager contents
}

// NewUSGSClient builds a client limited to rps requests per second.
// rps <= 0 disables limiting.
func NewUSGSClient(baseURL string, timeout time.Duration, rps float64) *USGSClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &USGSClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		pagers:  make(map[string]map[string]usgsContent),
	}
}

func (c *USGSClient) EventByID(ctx context.Context, id string) (*models.Event, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing catalog url: %w", err)
	}
	q := u.Query()
	q.Set("eventid", id)
	q.Set("format", "geojson")
	u.RawQuery = q.Encode()

	var detail usgsDetail
	if err := c.getJSON(ctx, u.String(), &detail); err != nil {
		return nil, err
	}
	if len(detail.Geometry.Coordinates) < 3 {
		return nil, fmt.Errorf("event %s: malformed geometry", id)
	}

	if products := detail.Properties.Products[pagerProduct]; len(products) > 0 {
		c.mu.Lock()
		c.pagers[id] = products[0].Contents
		c.mu.Unlock()
	}

	return &models.Event{
		ID:        id,
		Time:      time.UnixMilli(detail.Properties.Time).UTC(),
		Longitude: detail.Geometry.Coordinates[0],
		Latitude:  detail.Geometry.Coordinates[1],
		Depth:     detail.Geometry.Coordinates[2],
		Magnitude: detail.Properties.Mag,
		Title:     detail.Properties.Title,
	}, nil
}

// PagerExposure reads the losses and exposures files of the event's
// losspager product. EventByID must have been called for ev.ID first.
func (c *USGSClient) PagerExposure(ctx context.Context, ev *models.Event) (*models.Exposure, error) {
	c.mu.Lock()
	contents, ok := c.pagers[ev.ID]
	delete(c.pagers, ev.ID)
	c.mu.Unlock()
	if !ok {
		return nil, ErrNoPagerData
	}

	lossesURL, ok1 := contents[pagerLossesPath]
	exposuresURL, ok2 := contents[pagerExposurePath]
	if !ok1 || !ok2 {
		return nil, ErrNoPagerData
	}

	var losses pagerLosses
	if err := c.getJSON(ctx, lossesURL.URL, &losses); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, ErrNoPagerData
		}
		return nil, fmt.Errorf("error fetching PAGER losses: %w", err)
	}
	var exposures pagerExposures
	if err := c.getJSON(ctx, exposuresURL.URL, &exposures); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, ErrNoPagerData
		}
		return nil, fmt.Errorf("error fetching PAGER exposures: %w", err)
	}

	e := &models.Exposure{
		EventID:         ev.ID,
		Time:            ev.Time,
		Latitude:        ev.Latitude,
		Longitude:       ev.Longitude,
		Depth:           ev.Depth,
		Magnitude:       ev.Magnitude,
		PredictedDeaths: losses.EmpiricalFatality.TotalFatalities,
	}
	cumulative := cumulativeExposure(exposures.PopulationExposure.MMI, exposures.PopulationExposure.AggregatedExposure)
	for _, level := range models.MMILevels {
		e.SetMMI(level, cumulative[level])
	}
	return e, nil
}

// cumulativeExposure turns per-level population counts into counts at or
// above each level.
func cumulativeExposure(levels []int, counts []int64) map[int]int64 {
	out := make(map[int]int64, len(models.MMILevels))
	for i, level := range levels {
		if i >= len(counts) {
			break
		}
		for _, threshold := range models.MMILevels {
			if level >= threshold {
				out[threshold] += counts[i]
			}
		}
	}
	return out
}

func (c *USGSClient) getJSON(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound, http.StatusConflict:
		// 409 is returned for deleted events
		return ErrEventNotFound
	default:
		return fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("error decoding resp.Body: %w", err)
	}
	return nil
}
