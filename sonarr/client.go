package sonarr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golift.io/starr"
	"golift.io/starr/sonarr"

	"github.com/s0up4200/sonarr-hunter/config"
)

// RequestKind selects the deadline applied to a request
type RequestKind int

const (
	// RequestData is used for catalog and command endpoints
	RequestData RequestKind = iota
	// RequestProbe is used for the lightweight health check
	RequestProbe
)

// MissingPageSize is the page size requested from wanted/missing
const MissingPageSize = 100

// Client wraps the starr Sonarr client for one settings snapshot. Build a
// new client to pick up changed settings.
type Client struct {
	arr          *sonarr.Sonarr
	baseURL      string
	apiKey       string
	dataTimeout  time.Duration
	probeTimeout time.Duration
	logger       zerolog.Logger
}

// NewClient creates a new Sonarr client for the given settings
func NewClient(settings config.Settings, logger zerolog.Logger, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	baseURL := strings.TrimRight(settings.URL, "/")

	return &Client{
		arr: sonarr.New(&starr.Config{
			URL:    baseURL,
			APIKey: settings.APIKey,
			Client: o.httpClient,
		}),
		baseURL:      baseURL,
		apiKey:       settings.APIKey,
		dataTimeout:  o.dataTimeout,
		probeTimeout: o.probeTimeout,
		logger:       logger.With().Str("component", "sonarr").Logger(),
	}
}

// Configured reports whether a URL and an API key are set
func (c *Client) Configured() bool {
	settings := config.Settings{URL: c.baseURL, APIKey: c.apiKey}
	return settings.Configured()
}

// withDeadline bounds ctx by the timeout of the request kind
func (c *Client) withDeadline(ctx context.Context, kind RequestKind) (context.Context, context.CancelFunc) {
	if kind == RequestProbe {
		return context.WithTimeout(ctx, c.probeTimeout)
	}
	return context.WithTimeout(ctx, c.dataTimeout)
}

// Request performs an authenticated request against /api/v3/<endpoint>.
// The endpoint may carry a query string. A non-nil body is sent as JSON; a
// non-nil out receives the decoded response. Every failure is returned as
// an *APIError.
func (c *Client) Request(ctx context.Context, kind RequestKind, method, endpoint string, body, out any) error {
	uri, rawQuery, _ := strings.Cut(strings.TrimPrefix(endpoint, "/"), "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return &APIError{Kind: KindTransport, Method: method, Endpoint: endpoint, Err: fmt.Errorf("invalid query: %w", err)}
	}

	req := starr.Request{URI: path.Join(sonarr.APIver, uri), Query: query}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindDecode, Method: method, Endpoint: endpoint, Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		req.Body = bytes.NewReader(data)
	}
	if out == nil {
		var discard json.RawMessage
		out = &discard
	}

	ctx, cancel := c.withDeadline(ctx, kind)
	defer cancel()

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Making Sonarr API request")

	switch method {
	case http.MethodGet:
		err = c.arr.GetInto(ctx, req, out)
	case http.MethodPost:
		err = c.arr.PostInto(ctx, req, out)
	case http.MethodPut:
		err = c.arr.PutInto(ctx, req, out)
	default:
		err = fmt.Errorf("unsupported method %s", method)
	}

	return classify(method, endpoint, err)
}

// classify converts a starr error into an *APIError
func classify(method, endpoint string, err error) error {
	if err == nil {
		return nil
	}

	apiErr := &APIError{Kind: KindTransport, Method: method, Endpoint: endpoint, Err: err}

	var reqErr *starr.ReqError
	var urlErr *url.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &reqErr):
		apiErr.Kind = KindServer
		if reqErr.Code == http.StatusUnauthorized {
			apiErr.Kind = KindUnauthorized
		}
		apiErr.StatusCode = reqErr.Code
		apiErr.Body = truncate(string(reqErr.Body), 512)
	case isTimeout(err):
		apiErr.Kind = KindTimeout
	case errors.As(err, &urlErr):
		// request never produced a response
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		apiErr.Kind = KindDecode
		apiErr.StatusCode = http.StatusOK
	}

	return apiErr
}

// isTimeout separates deadline failures from other network errors
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// schemaError reports a decoded payload that violates the expected shape
func schemaError(method, endpoint, format string, args ...any) error {
	return &APIError{
		Kind:       KindDecode,
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: http.StatusOK,
		Err:        fmt.Errorf(format, args...),
	}
}

// SystemStatus performs the health check
func (c *Client) SystemStatus(ctx context.Context) (*sonarr.SystemStatus, error) {
	const endpoint = "system/status"

	ctx, cancel := c.withDeadline(ctx, RequestProbe)
	defer cancel()

	st, err := c.arr.GetSystemStatusContext(ctx)
	if err != nil {
		return nil, classify(http.MethodGet, endpoint, err)
	}
	if st.Version == "" {
		return nil, schemaError(http.MethodGet, endpoint, "system status has no version")
	}

	return st, nil
}

// AllSeries retrieves every series in the library
func (c *Client) AllSeries(ctx context.Context) ([]*sonarr.Series, error) {
	const endpoint = "series"

	ctx, cancel := c.withDeadline(ctx, RequestData)
	defer cancel()

	series, err := c.arr.GetAllSeriesContext(ctx)
	if err != nil {
		return nil, classify(http.MethodGet, endpoint, err)
	}
	for i, s := range series {
		if s == nil || s.ID <= 0 {
			return nil, schemaError(http.MethodGet, endpoint, "series at index %d has no id", i)
		}
	}

	c.logger.Debug().Msgf("Retrieved %d series from Sonarr", len(series))
	return series, nil
}

// SeriesEpisodes retrieves the episodes of one series
func (c *Client) SeriesEpisodes(ctx context.Context, seriesID int64) ([]*sonarr.Episode, error) {
	endpoint := "episode?seriesId=" + strconv.FormatInt(seriesID, 10)

	ctx, cancel := c.withDeadline(ctx, RequestData)
	defer cancel()

	episodes, err := c.arr.GetSeriesEpisodesContext(ctx, seriesID)
	if err != nil {
		return nil, classify(http.MethodGet, endpoint, err)
	}
	for i, ep := range episodes {
		if ep == nil || ep.ID <= 0 {
			return nil, schemaError(http.MethodGet, endpoint, "episode at index %d has no id", i)
		}
	}

	return episodes, nil
}

// WantedMissing retrieves one page of the wanted/missing listing
func (c *Client) WantedMissing(ctx context.Context, page int) (*MissingPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(MissingPageSize))
	params.Set("includeImages", "false")
	params.Set("includeSeries", "true")
	endpoint := "wanted/missing?" + params.Encode()

	var result MissingPage
	if err := c.Request(ctx, RequestData, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	if result.Records == nil && result.TotalRecords > 0 {
		return nil, schemaError(http.MethodGet, endpoint, "page %d has no records", page)
	}
	for i, r := range result.Records {
		if r.ID <= 0 {
			return nil, schemaError(http.MethodGet, endpoint, "record at index %d has no id", i)
		}
	}

	return &result, nil
}

// SendCommand posts a command such as EpisodeSearch or SeriesSearch
func (c *Client) SendCommand(ctx context.Context, cmd *sonarr.CommandRequest) (*sonarr.CommandResponse, error) {
	const endpoint = "command"

	ctx, cancel := c.withDeadline(ctx, RequestData)
	defer cancel()

	resp, err := c.arr.SendCommandContext(ctx, cmd)
	if err != nil {
		return nil, classify(http.MethodPost, endpoint, err)
	}
	if resp.ID <= 0 {
		return nil, schemaError(http.MethodPost, endpoint, "command response has no id")
	}

	return resp, nil
}
