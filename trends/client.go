package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the public Google Trends host
const DefaultBaseURL = "https://trends.google.com"

const (
	explorePath    = "/trends/api/explore"
	multilinePath  = "/trends/api/widgetdata/multiline"
	timeseriesID   = "TIMESERIES"
	errorBodyLimit = 200
)

// xssiPrefix is prepended by Trends endpoints to every JSON body.
var xssiPrefix = []byte(")]}'")

// Client talks to Google Trends, or any host serving the same explore and
// widgetdata/multiline endpoints. Each query takes two requests: explore returns a
// signed TIMESERIES widget, and multiline exchanges that widget for the timeline.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Trends client. An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}
	// cookiejar.New never fails with nil options
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			Jar:       jar,
		},
	}
}

// exploreRequest is the req parameter of the explore call
type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

// exploreResponse lists the widgets of an explore page
type exploreResponse struct {
	Widgets []struct {
		ID      string          `json:"id"`
		Token   string          `json:"token"`
		Request json.RawMessage `json:"request"`
	} `json:"widgets"`
}

// timelineResponse mirrors the multiline widget payload.
type timelineResponse struct {
	Default struct {
		TimelineData []struct {
			Time      string `json:"time"`
			Value     []int  `json:"value"`
			HasData   []bool `json:"hasData"`
			IsPartial bool   `json:"isPartial"`
		} `json:"timelineData"`
	} `json:"default"`
}

// InterestOverTime fetches the series for q.Keyword
func (c *Client) InterestOverTime(ctx context.Context, q Query) (Series, error) {
	c.seedCookies(ctx, q.Geo)

	token, widget, err := c.explore(ctx, q)
	if err != nil {
		return Series{}, err
	}

	params := url.Values{}
	params.Set("req", string(widget))
	params.Set("token", token)
	params.Set("tz", strconv.Itoa(q.TZOffset))
	if q.Language != "" {
		params.Set("hl", q.Language)
	}

	body, err := c.do(ctx, http.MethodGet, multilinePath, params, q.Keyword)
	if err != nil {
		return Series{}, err
	}
	return decodeTimeline(q.Keyword, body)
}

// explore returns the token and request of the TIMESERIES widget for q
func (c *Client) explore(ctx context.Context, q Query) (string, json.RawMessage, error) {
	req, err := json.Marshal(exploreRequest{
		ComparisonItem: []comparisonItem{{Keyword: q.Keyword, Time: q.Window.String(), Geo: q.Geo}},
	})
	if err != nil {
		return "", nil, &ProviderError{Keyword: q.Keyword, Err: fmt.Errorf("failed to encode explore request: %w", err)}
	}

	params := url.Values{}
	params.Set("hl", q.Language)
	params.Set("tz", strconv.Itoa(q.TZOffset))
	params.Set("req", string(req))

	body, err := c.do(ctx, http.MethodPost, explorePath, params, q.Keyword)
	if err != nil {
		return "", nil, err
	}

	var payload exploreResponse
	if err := json.Unmarshal(stripXSSI(body), &payload); err != nil {
		return "", nil, &ProviderError{Keyword: q.Keyword, Err: fmt.Errorf("failed to decode explore response: %w", err)}
	}
	for _, w := range payload.Widgets {
		if w.ID == timeseriesID && w.Token != "" && len(w.Request) > 0 {
			return w.Token, w.Request, nil
		}
	}
	return "", nil, &ProviderError{Keyword: q.Keyword, Err: fmt.Errorf("explore response has no %s widget", timeseriesID)}
}

// seedCookies loads the consent cookies Trends expects before the first API call.
// Failures are ignored; the API call reports the real problem.
func (c *Client) seedCookies(ctx context.Context, geo string) {
	u, err := url.Parse(c.baseURL)
	if err != nil || len(c.client.Jar.Cookies(u)) > 0 {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?geo="+url.QueryEscape(geo), nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// do sends one API request and maps transport and status failures to *ProviderError
func (c *Client) do(ctx context.Context, method, path string, params url.Values, keyword string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ProviderError{Keyword: keyword, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Keyword: keyword, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Keyword: keyword, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ProviderError{Keyword: keyword, StatusCode: resp.StatusCode, RateLimited: true, Err: fmt.Errorf("too many requests")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Keyword: keyword, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status from %s: %s", path, truncate(body, errorBodyLimit))}
	}
	return body, nil
}

func stripXSSI(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if bytes.HasPrefix(body, xssiPrefix) {
		body = bytes.TrimSpace(body[len(xssiPrefix):])
		body = bytes.TrimPrefix(body, []byte(","))
	}
	return body
}

// decodeTimeline converts multiline rows to points. A row flagged hasData=false is a
// week with no measurable interest and is kept as 0 so the series has no gap.
func decodeTimeline(keyword string, body []byte) (Series, error) {
	var payload timelineResponse
	if err := json.Unmarshal(stripXSSI(body), &payload); err != nil {
		return Series{}, &ProviderError{Keyword: keyword, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	series := Series{Keyword: keyword}
	for _, row := range payload.Default.TimelineData {
		noData := len(row.HasData) > 0 && !row.HasData[0]
		if len(row.Value) == 0 && !noData {
			continue
		}
		ts, err := strconv.ParseInt(row.Time, 10, 64)
		if err != nil {
			return Series{}, &ProviderError{Keyword: keyword, Err: fmt.Errorf("invalid timestamp %q: %w", row.Time, err)}
		}

		value := 0.0
		if !noData {
			value = float64(row.Value[0])
		}
		series.Points = append(series.Points, Point{
			Date:    time.Unix(ts, 0).UTC(),
			Value:   value,
			Partial: row.IsPartial,
		})
	}

	return series, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
