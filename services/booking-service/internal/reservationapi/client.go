package reservationapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedResponse = errors.New("malformed backend response")
)

// StatusError carries an unexpected backend status code.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: backend returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Location *time.Location

	// Token is a static bearer token, ignored when client credentials are set.
	Token string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client talks to the reservation backend that owns rooms, periods,
// settings and reservations.
type Client struct {
	base   *url.URL
	http   *http.Client
	loc    *time.Location
	logger *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	var transport http.RoundTripper = requestIDTransport{next: otelhttp.NewTransport(http.DefaultTransport)}
	var hc *http.Client
	switch {
	case cfg.TokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport, Timeout: cfg.Timeout})
		hc = cc.Client(ctx)
		hc.Timeout = cfg.Timeout
	case cfg.Token != "":
		hc = &http.Client{Transport: bearerTransport{token: cfg.Token, next: transport}, Timeout: cfg.Timeout}
	default:
		hc = &http.Client{Transport: transport, Timeout: cfg.Timeout}
	}

	return &Client{base: base, http: hc, loc: cfg.Location, logger: logger}, nil
}

func (c *Client) Location() *time.Location { return c.loc }

type periodDTO struct {
	ID    int    `json:"period_id"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// ListPeriods returns the day's configured periods. Rows with unparseable
// times are skipped.
func (c *Client) ListPeriods(ctx context.Context) ([]period.Period, error) {
	var rows []periodDTO
	if err := c.do(ctx, http.MethodGet, "periods", nil, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]period.Period, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPeriod()
		if err != nil {
			c.logger.Warn("skipping malformed period", zap.Int("period_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (row periodDTO) toPeriod() (period.Period, error) {
	start, err := period.ParseTimeOfDay(row.Start)
	if err != nil {
		return period.Period{}, err
	}
	end, err := period.ParseTimeOfDay(row.End)
	if err != nil {
		return period.Period{}, err
	}
	p := period.Period{ID: row.ID, Start: start, End: end}
	return p, p.Validate()
}

type reservationDTO struct {
	ID     int    `json:"reservation_id"`
	Start  string `json:"start_time"`
	End    string `json:"end_time"`
	Status int    `json:"status"`
}

// ListReservations returns every reservation of roomID on date, whatever its
// status. A row that cannot be parsed fails the whole lookup so an unknown
// reservation is never mistaken for free time.
func (c *Client) ListReservations(ctx context.Context, roomID int, date time.Time) ([]period.Interval, error) {
	q := url.Values{}
	q.Set("room_id", strconv.Itoa(roomID))
	q.Set("date", date.Format(period.DateLayout))

	var rows []reservationDTO
	if err := c.do(ctx, http.MethodGet, "reservations", q, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]period.Interval, 0, len(rows))
	for _, row := range rows {
		start, err := period.ParseTimestamp(row.Start, c.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: reservation %d start %q", ErrMalformedResponse, row.ID, row.Start)
		}
		end, err := period.ParseTimestamp(row.End, c.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: reservation %d end %q", ErrMalformedResponse, row.ID, row.End)
		}
		out = append(out, period.Interval{
			Slot:   period.Slot{Start: start, End: end},
			Status: period.Status(row.Status),
		})
	}
	return out, nil
}

type settingDTO struct {
	ID    int    `json:"setting_id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GetSetting returns the raw value of a numeric setting.
func (c *Client) GetSetting(ctx context.Context, id int) (string, error) {
	var row settingDTO
	if err := c.do(ctx, http.MethodGet, "settings/"+strconv.Itoa(id), nil, nil, &row); err != nil {
		return "", err
	}
	return row.Value, nil
}

type timeSlotDTO struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

type createRequest struct {
	RoomID    int           `json:"room_id"`
	Title     string        `json:"title"`
	Note      string        `json:"note"`
	TimeSlots []timeSlotDTO `json:"time_slots"`
}

type createResponse struct {
	ReservationID json.RawMessage `json:"reservation_id"`
}

// CreateReservation submits all slots as one reservation and returns the
// backend's identifier.
func (c *Client) CreateReservation(ctx context.Context, roomID int, title, note string, slots []period.Slot) (string, error) {
	req := createRequest{RoomID: roomID, Title: title, Note: note, TimeSlots: make([]timeSlotDTO, 0, len(slots))}
	for _, s := range slots {
		req.TimeSlots = append(req.TimeSlots, timeSlotDTO{
			Start: period.FormatTimestamp(s.Start.In(c.loc)),
			End:   period.FormatTimestamp(s.End.In(c.loc)),
		})
	}

	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "reservations", nil, req, &resp); err != nil {
		return "", err
	}
	id := strings.Trim(strings.TrimSpace(string(resp.ReservationID)), `"`)
	if id == "" || id == "null" {
		return "", fmt.Errorf("%w: missing reservation_id", ErrMalformedResponse)
	}
	return id, nil
}

// Ping reports whether the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(r)
}

type requestIDTransport struct {
	next http.RoundTripper
}

func (t requestIDTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if id := httpx.RequestIDFromContext(r.Context()); id != "" && r.Header.Get(httpx.RequestIDHeader) == "" {
		r = r.Clone(r.Context())
		r.Header.Set(httpx.RequestIDHeader, id)
	}
	return t.next.RoundTrip(r)
}
