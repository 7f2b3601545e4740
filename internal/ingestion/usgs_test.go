package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

func newUSGSTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "geojson" {
			http.Error(w, "bad format", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("eventid") {
		case "us20002926":
			fmt.Fprintf(w, `{
				"id": "us20002926",
				"properties": {
					"mag": 7.8,
					"time": 1429942285950,
					"title": "M 7.8 - 36 km E of Khudi, Nepal",
					"products": {
						"losspager": [{
							"code": "us20002926",
							"contents": {
								"json/losses.json": {"url": "%[1]s/pager/losses.json"},
								"json/exposures.json": {"url": "%[1]s/pager/exposures.json"}
							}
						}]
					}
				},
				"geometry": {"coordinates": [84.7314, 28.2305, 8.22]}
			}`, srv.URL)
		case "us1000nopager":
			fmt.Fprint(w, `{
				"id": "us1000nopager",
				"properties": {"mag": 4.1, "time": 1429942285950, "products": {"origin": [{}]}},
				"geometry": {"coordinates": [1, 2, 3]}
			}`)
		case "us1000broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/pager/losses.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"empirical_fatality": {"total_fatalities": 8787, "country_fatalities": []}}`)
	})
	mux.HandleFunc("/pager/exposures.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"population_exposure": {
			"mmi": [1, 2, 3, 4, 5, 6, 7, 8, 9, 10],
			"aggregated_exposure": [0, 0, 10, 20, 100, 50, 25, 12, 6, 3]
		}}`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUSGSClient_EventAndExposure(t *testing.T) {
	srv := newUSGSTestServer(t)
	client := NewUSGSClient(srv.URL+"/query", 5*time.Second, 0)
	ctx := context.Background()

	ev, err := client.EventByID(ctx, "us20002926")
	if err != nil {
		t.Fatalf("EventByID failed: %v", err)
	}
	if ev.Magnitude != 7.8 || ev.Latitude != 28.2305 || ev.Longitude != 84.7314 || ev.Depth != 8.22 {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !ev.Time.Equal(time.UnixMilli(1429942285950)) {
		t.Errorf("unexpected event time: %v", ev.Time)
	}

	exp, err := client.PagerExposure(ctx, ev)
	if err != nil {
		t.Fatalf("PagerExposure failed: %v", err)
	}
	if exp.PredictedDeaths != 8787 {
		t.Errorf("expected 8787 predicted deaths, got %d", exp.PredictedDeaths)
	}

	// at-or-above sums of the per-level counts
	want := map[int]int64{5: 196, 6: 96, 7: 46, 8: 21, 9: 9, 10: 3}
	for level, n := range want {
		if got := exp.MMI(level); got != n {
			t.Errorf("mmi%d: expected %d, got %d", level, n, got)
		}
	}
}

func TestUSGSClient_NotFound(t *testing.T) {
	srv := newUSGSTestServer(t)
	client := NewUSGSClient(srv.URL+"/query", 5*time.Second, 0)

	_, err := client.EventByID(context.Background(), "us9999unknown")
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestUSGSClient_NoPagerProduct(t *testing.T) {
	srv := newUSGSTestServer(t)
	client := NewUSGSClient(srv.URL+"/query", 5*time.Second, 0)
	ctx := context.Background()

	ev, err := client.EventByID(ctx, "us1000nopager")
	if err != nil {
		t.Fatalf("EventByID failed: %v", err)
	}
	_, err = client.PagerExposure(ctx, ev)
	if !errors.Is(err, ErrNoPagerData) {
		t.Errorf("expected ErrNoPagerData, got %v", err)
	}
}

func TestUSGSClient_ServerError(t *testing.T) {
	srv := newUSGSTestServer(t)
	client := NewUSGSClient(srv.URL+"/query", 5*time.Second, 0)

	_, err := client.EventByID(context.Background(), "us1000broken")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrNoPagerData) {
		t.Errorf("server failure must not look like a skip: %v", err)
	}
}

func TestUSGSClient_PagerWithoutEvent(t *testing.T) {
	client := NewUSGSClient("http://unused.invalid", time.Second, 0)
	_, err := client.PagerExposure(context.Background(), &models.Event{ID: "never-fetched"})
	if !errors.Is(err, ErrNoPagerData) {
		t.Errorf("expected ErrNoPagerData, got %v", err)
	}
}

func TestCumulativeExposure(t *testing.T) {
	got := cumulativeExposure([]int{4, 5, 6}, []int64{1000, 10, 1})
	if got[5] != 11 || got[6] != 1 || got[7] != 0 {
		t.Errorf("unexpected cumulative exposure: %v", got)
	}
}
