package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuery(t *testing.T) Query {
	t.Helper()
	w, err := ParseWindow("2019-01-01", "2025-12-31")
	require.NoError(t, err)
	return Query{Keyword: "ozempic", Window: w, Geo: "US", Language: "es-MX", TZOffset: 360}
}

// trendsServer serves the explore and multiline endpoints. timeline is the multiline
// body returned for every keyword.
type trendsServer struct {
	*httptest.Server
	exploreReq  string
	multiQuery  url.Values
	seeded      int
	noTimeserie bool
}

func newTrendsServer(t *testing.T, timeline string) *trendsServer {
	t.Helper()
	ts := &trendsServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ts.seeded++
		http.SetCookie(w, &http.Cookie{Name: "NID", Value: "1", Path: "/"})
	})
	mux.HandleFunc("/trends/api/explore", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ts.exploreReq = r.URL.Query().Get("req")
		id := "TIMESERIES"
		if ts.noTimeserie {
			id = "RELATED_QUERIES"
		}
		w.Write([]byte(")]}'\n" + `{"widgets":[
			{"id":"GEO_MAP","token":"geo-token","request":{}},
			{"id":"` + id + `","token":"ts-token","request":{"time":"2019-01-01 2025-12-31","resolution":"WEEK"}}
		]}`))
	})
	mux.HandleFunc("/trends/api/widgetdata/multiline", func(w http.ResponseWriter, r *http.Request) {
		ts.multiQuery = r.URL.Query()
		if ts.multiQuery.Get("token") != "ts-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(")]}',\n" + timeline))
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientInterestOverTime(t *testing.T) {
	srv := newTrendsServer(t, `{"default":{"timelineData":[
		{"time":"1546128000","value":[12],"hasData":[true]},
		{"time":"1546732800","value":[0],"hasData":[false]},
		{"time":"1547337600","value":[40],"hasData":[true],"isPartial":true}
	]}}`)

	c := NewClient(srv.URL, 5*time.Second)
	series, err := c.InterestOverTime(context.Background(), testQuery(t))
	require.NoError(t, err)

	assert.Equal(t, "ozempic", series.Keyword)
	require.Len(t, series.Points, 3)
	assert.Equal(t, 12.0, series.Points[0].Value)
	assert.Equal(t, time.Unix(1546128000, 0).UTC(), series.Points[0].Date)
	assert.Equal(t, 0.0, series.Points[1].Value)
	assert.Equal(t, time.Unix(1546732800, 0).UTC(), series.Points[1].Date)
	assert.True(t, series.Points[2].Partial)

	var req exploreRequest
	require.NoError(t, json.Unmarshal([]byte(srv.exploreReq), &req))
	require.Len(t, req.ComparisonItem, 1)
	assert.Equal(t, comparisonItem{Keyword: "ozempic", Time: "2019-01-01 2025-12-31", Geo: "US"}, req.ComparisonItem[0])

	assert.JSONEq(t, `{"time":"2019-01-01 2025-12-31","resolution":"WEEK"}`, srv.multiQuery.Get("req"))
	assert.Equal(t, "360", srv.multiQuery.Get("tz"))
	assert.Equal(t, "es-MX", srv.multiQuery.Get("hl"))
}

func TestClientSeedsCookiesOnce(t *testing.T) {
	srv := newTrendsServer(t, `{"default":{"timelineData":[]}}`)
	c := NewClient(srv.URL, time.Second)

	for i := 0; i < 3; i++ {
		_, err := c.InterestOverTime(context.Background(), testQuery(t))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.seeded)
}

func TestClientMissingTimeseriesWidget(t *testing.T) {
	srv := newTrendsServer(t, `{"default":{"timelineData":[]}}`)
	srv.noTimeserie = true

	_, err := NewClient(srv.URL, time.Second).InterestOverTime(context.Background(), testQuery(t))
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.False(t, pe.RateLimited)
}

func TestDecodeTimelineKeepsNoDataWeeks(t *testing.T) {
	rows := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		hasData, value := "true", strconv.Itoa(i+1)
		if i == 5 {
			hasData, value = "false", "0"
		}
		rows = append(rows, fmt.Sprintf(`{"time":"%d","value":[%s],"hasData":[%s]}`, 1546128000+i*7*24*3600, value, hasData))
	}
	body := `{"default":{"timelineData":[` + strings.Join(rows, ",") + `]}}`

	series, err := decodeTimeline("b", []byte(body))
	require.NoError(t, err)
	require.Len(t, series.Points, 40)
	assert.Equal(t, 0.0, series.Points[5].Value)
	for i := 1; i < len(series.Points); i++ {
		assert.Equal(t, 7*24*time.Hour, series.Points[i].Date.Sub(series.Points[i-1].Date))
	}
}

func TestDecodeTimelineSkipsValuelessRows(t *testing.T) {
	series, err := decodeTimeline("b", []byte(`{"default":{"timelineData":[
		{"time":"1546128000","value":[],"hasData":[true]},
		{"time":"1546732800","value":[3]}
	]}}`))
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Equal(t, 3.0, series.Points[0].Value)
}

func TestClientEmptyTimeline(t *testing.T) {
	srv := newTrendsServer(t, `{"default":{"timelineData":[]}}`)

	series, err := NewClient(srv.URL, time.Second).InterestOverTime(context.Background(), testQuery(t))
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestNewClientDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", time.Second).baseURL)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", rateLimited: true},
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "malformed body", status: http.StatusOK, body: "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).InterestOverTime(context.Background(), testQuery(t))
			require.Error(t, err)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.rateLimited, IsRateLimited(err))
			assert.Equal(t, "ozempic", pe.Keyword)
		})
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2019-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2019-01-01 2025-12-31", w.String())

	_, err = ParseWindow("2025-12-31", "2019-01-01")
	assert.Error(t, err)

	_, err = ParseWindow("yesterday", "2019-01-01")
	assert.Error(t, err)
}

func TestStaticProvider(t *testing.T) {
	start := time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)
	p := NewStaticProvider(WeeklySeries("a", start, []float64{1, 2, 3}))
	p.FailFirst("a", 1)

	_, err := p.InterestOverTime(context.Background(), Query{Keyword: "a"})
	assert.True(t, IsRateLimited(err))

	s, err := p.InterestOverTime(context.Background(), Query{Keyword: "a"})
	require.NoError(t, err)
	assert.Len(t, s.Points, 3)
	assert.Equal(t, 2, p.Calls("a"))

	s, err = p.InterestOverTime(context.Background(), Query{Keyword: "unknown"})
	require.NoError(t, err)
	assert.True(t, s.Empty())
}
