package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/shared"
)

const (
	DefaultBaseURL   = "https://live2.nicovideo.jp"
	DefaultNicoadURL = "https://api.nicoad.nicovideo.jp"
	DefaultWatchURL  = "https://live.nicovideo.jp/watch"

	// ExtensionMinutes is the fixed length of one extension.
	ExtensionMinutes = 30

	errorCodeNotPasswordProgram = "NOT_PASSWORD_PROGRAM"
)

// ClientOpts configures a [NicoliveClient]. Zero values select defaults.
type ClientOpts struct {
	BaseURL   string
	NicoadURL string
	WatchURL  string

	// HTTPClient replaces the retrying transport, mainly for tests.
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource

	// RateLimit is the number of requests per second; zero or less disables throttling.
	RateLimit  float64
	MaxRetries int
	Timeout    time.Duration
	UserAgent  string
	Logger     *log.Logger
}

// NicoliveClient implements [Broadcaster] over the Nicolive HTTP API.
type NicoliveClient struct {
	rest      *resty.Client
	limiter   *rate.Limiter
	baseURL   string
	nicoadURL string
	watchURL  string
	logger    *log.Logger
}

// NewNicoliveClient creates a client. Requests carry a bearer token from opts.TokenSource when set.
func NewNicoliveClient(opts ClientOpts) *NicoliveClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.NicoadURL == "" {
		opts.NicoadURL = DefaultNicoadURL
	}
	if opts.WatchURL == "" {
		opts.WatchURL = DefaultWatchURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "onair"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: newRetryTransport(opts.MaxRetries)}
	} else {
		copied := *hc
		hc = &copied
	}
	if opts.TokenSource != nil {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc.Transport = &oauth2.Transport{Source: opts.TokenSource, Base: base}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	rest := resty.NewWithClient(hc).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")

	return &NicoliveClient{
		rest:      rest,
		limiter:   rate.NewLimiter(limit, 1),
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		nicoadURL: strings.TrimRight(opts.NicoadURL, "/"),
		watchURL:  strings.TrimRight(opts.WatchURL, "/"),
		logger:    shared.WithLogger(opts.Logger, "component", "nicolive"),
	}
}

type idempotentKey struct{}

// newRetryTransport retries transport failures and 5xx responses, for GET requests only.
func newRetryTransport(maxRetries int) http.RoundTripper {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &retryablehttp.RoundTripper{Client: rc}
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if idempotent, _ := ctx.Value(idempotentKey{}).(bool); !idempotent {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type responseMeta struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"errorCode"`
}

type envelope[T any] struct {
	Meta responseMeta `json:"meta"`
	Data T            `json:"data"`
}

// doRequest performs one API call and decodes the data member of the response envelope.
func doRequest[T any](ctx context.Context, c *NicoliveClient, method, endpoint string, body any) (Result[T], error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result[T]{}, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}
	if method == http.MethodGet {
		ctx = context.WithValue(ctx, idempotentKey{}, true)
	}

	req := c.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", shared.GenerateID())
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return Result[T]{}, fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, endpoint, err)
	}

	date := serverDate(resp.Header())
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Debug("request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode())
		return Result[T]{ServerDate: date}, newAPIError(method, endpoint, resp.StatusCode(), resp.Body())
	}

	var env envelope[T]
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return Result[T]{ServerDate: date}, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return Result[T]{Value: env.Data, ServerDate: date}, nil
}

func serverDate(h http.Header) time.Time {
	raw := h.Get("Date")
	if raw == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *NicoliveClient) programURL(programID, suffix string) string {
	return fmt.Sprintf("%s/unama/api/v2/programs/%s/%s", c.baseURL, url.PathEscape(programID), suffix)
}

// FetchProgramSchedules calls GET /unama/tool/v2/program-schedules.
func (c *NicoliveClient) FetchProgramSchedules(ctx context.Context) (Result[[]models.Schedule], error) {
	res, err := doRequest[struct {
		ProgramSchedules []models.Schedule `json:"programSchedules"`
	}](ctx, c, http.MethodGet, c.baseURL+"/unama/tool/v2/program-schedules", nil)
	if err != nil {
		return Result[[]models.Schedule]{ServerDate: res.ServerDate}, err
	}
	return Result[[]models.Schedule]{Value: res.Value.ProgramSchedules, ServerDate: res.ServerDate}, nil
}

type programInfo struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      models.Status `json:"status"`
	ShowTime    struct {
		BeginAt int64 `json:"beginAt"`
		EndAt   int64 `json:"endAt"`
	} `json:"showTime"`
	VposBaseAt       int64  `json:"vposBaseAt"`
	IsMemberOnly     bool   `json:"isMemberOnly"`
	ModeratorViewURI string `json:"moderatorViewUri"`
}

// FetchProgram calls GET /watch/{id}/programinfo.
func (c *NicoliveClient) FetchProgram(ctx context.Context, programID string) (Result[models.ProgramDetail], error) {
	endpoint := fmt.Sprintf("%s/watch/%s/programinfo", c.baseURL, url.PathEscape(programID))
	res, err := doRequest[programInfo](ctx, c, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result[models.ProgramDetail]{ServerDate: res.ServerDate}, err
	}

	info := res.Value
	detail := models.ProgramDetail{
		ProgramID:        programID,
		Title:            info.Title,
		Description:      info.Description,
		Status:           info.Status,
		BeginAt:          info.ShowTime.BeginAt,
		EndAt:            info.ShowTime.EndAt,
		VposBaseAt:       info.VposBaseAt,
		IsMemberOnly:     info.IsMemberOnly,
		ViewURI:          c.watchURL + "/" + programID,
		ModeratorViewURI: info.ModeratorViewURI,
	}
	return Result[models.ProgramDetail]{Value: detail, ServerDate: res.ServerDate}, nil
}

// FetchProgramPassword calls GET /unama/api/v2/programs/{id}/password.
func (c *NicoliveClient) FetchProgramPassword(ctx context.Context, programID string) (Result[string], error) {
	res, err := doRequest[struct {
		Password string `json:"password"`
	}](ctx, c, http.MethodGet, c.programURL(programID, "password"), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && apiErr.ErrorCode == errorCodeNotPasswordProgram {
			return Result[string]{ServerDate: res.ServerDate}, fmt.Errorf("%w: %s", ErrNotPasswordProtected, programID)
		}
		return Result[string]{ServerDate: res.ServerDate}, err
	}
	return Result[string]{Value: res.Value.Password, ServerDate: res.ServerDate}, nil
}

type segmentData struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
}

func (c *NicoliveClient) putSegment(ctx context.Context, programID, state string) (Result[models.Segment], error) {
	res, err := doRequest[segmentData](ctx, c, http.MethodPut, c.programURL(programID, "segment"), map[string]string{"state": state})
	if err != nil {
		return Result[models.Segment]{ServerDate: res.ServerDate}, err
	}
	seg := models.Segment{StartTime: res.Value.StartTime, EndTime: res.Value.EndTime}
	return Result[models.Segment]{Value: seg, ServerDate: res.ServerDate}, nil
}

// StartProgram calls PUT /unama/api/v2/programs/{id}/segment with state on_air.
func (c *NicoliveClient) StartProgram(ctx context.Context, programID string) (Result[models.Segment], error) {
	return c.putSegment(ctx, programID, "on_air")
}

// EndProgram calls PUT /unama/api/v2/programs/{id}/segment with state end.
func (c *NicoliveClient) EndProgram(ctx context.Context, programID string) (Result[models.Segment], error) {
	return c.putSegment(ctx, programID, "end")
}

// ExtendProgram calls PUT /unama/api/v2/programs/{id}/extension for [ExtensionMinutes].
func (c *NicoliveClient) ExtendProgram(ctx context.Context, programID string) (Result[models.Segment], error) {
	res, err := doRequest[segmentData](ctx, c, http.MethodPut, c.programURL(programID, "extension"), map[string]int{"minutes": ExtensionMinutes})
	if err != nil {
		return Result[models.Segment]{ServerDate: res.ServerDate}, err
	}
	return Result[models.Segment]{Value: models.Segment{EndTime: res.Value.EndTime}, ServerDate: res.ServerDate}, nil
}

// FetchStatistics calls GET /unama/api/v2/programs/{id}/statistics.
func (c *NicoliveClient) FetchStatistics(ctx context.Context, programID string) (Result[models.Statistics], error) {
	return doRequest[models.Statistics](ctx, c, http.MethodGet, c.programURL(programID, "statistics"), nil)
}

// FetchNicoadStatistics calls GET /v1/live/statusarea/{id} on the ad API.
func (c *NicoliveClient) FetchNicoadStatistics(ctx context.Context, programID string) (Result[models.NicoadStatistics], error) {
	endpoint := fmt.Sprintf("%s/v1/live/statusarea/%s", c.nicoadURL, url.PathEscape(programID))
	return doRequest[models.NicoadStatistics](ctx, c, http.MethodGet, endpoint, nil)
}
