// Package sheets is a CloudStore backed by the Google Sheets v4 REST API.
package sheets

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

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/domain"
)

const DefaultBase = "https://sheets.googleapis.com/v4"

var (
	ErrNotFound     = errors.New("sheets: not found")
	ErrUnauthorized = errors.New("sheets: unauthorized")
	ErrForbidden    = errors.New("sheets: forbidden")
	// ErrBadRange is what the API answers for a worksheet that does not exist.
	ErrBadRange = errors.New("sheets: unable to parse range")
)

type Client struct {
	base          string
	spreadsheetID string
	token         string
	hc            *http.Client
	rl            *rate.Limiter
}

func New(base, spreadsheetID, token string, rps int) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if base == "" {
		base = DefaultBase
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		base:          strings.TrimRight(base, "/"),
		spreadsheetID: spreadsheetID,
		token:         token,
		hc:            &http.Client{Timeout: 20 * time.Second},
		rl:            rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) Name() string { return "sheets" }

// ---- CloudStore ----

func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s/spreadsheets/%s?fields=spreadsheetId", c.base, url.PathEscape(c.spreadsheetID))
	var out struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	if err := c.do(ctx, "meta", http.MethodGet, u, nil, &out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCloudUnavailable, err)
	}
	return nil
}

type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

// Read returns an empty table when the worksheet does not exist.
func (c *Client) Read(ctx context.Context, sheet string) (domain.Table, error) {
	u := c.valuesURL(sheet, "") + "?majorDimension=ROWS&valueRenderOption=FORMATTED_VALUE"
	var vr valueRange
	if err := c.do(ctx, "values.get", http.MethodGet, u, nil, &vr); err != nil {
		if errors.Is(err, ErrBadRange) {
			return domain.Table{}, nil
		}
		return domain.Table{}, err
	}
	if len(vr.Values) == 0 {
		return domain.Table{}, nil
	}
	t := domain.Table{Header: toStrings(vr.Values[0])}
	for _, row := range vr.Values[1:] {
		t.Rows = append(t.Rows, toStrings(row))
	}
	return t, nil
}

// Write clears the worksheet and uploads header plus rows, creating the
// worksheet first when it is missing.
func (c *Client) Write(ctx context.Context, sheet string, t domain.Table) error {
	err := c.do(ctx, "values.clear", http.MethodPost, c.valuesURL(sheet, ":clear"), struct{}{}, nil)
	if errors.Is(err, ErrBadRange) {
		err = c.addSheet(ctx, sheet)
	}
	if err != nil {
		return err
	}

	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, fromStrings(t.Header))
	for _, r := range t.Rows {
		values = append(values, fromStrings(r))
	}
	body := valueRange{Range: sheet, MajorDimension: "ROWS", Values: values}
	return c.do(ctx, "values.update", http.MethodPut, c.valuesURL(sheet, "")+"?valueInputOption=RAW", body, nil)
}

func (c *Client) addSheet(ctx context.Context, sheet string) error {
	u := fmt.Sprintf("%s/spreadsheets/%s:batchUpdate", c.base, url.PathEscape(c.spreadsheetID))
	body := map[string]any{
		"requests": []any{
			map[string]any{"addSheet": map[string]any{"properties": map[string]any{"title": sheet}}},
		},
	}
	return c.do(ctx, "batchUpdate", http.MethodPost, u, body, nil)
}

func (c *Client) valuesURL(sheet, suffix string) string {
	return fmt.Sprintf("%s/spreadsheets/%s/values/%s%s", c.base,
		url.PathEscape(c.spreadsheetID), url.PathEscape(sheet), suffix)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strings.ToUpper(strconv.FormatBool(x))
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func fromStrings(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// ---- Internals ----

// maxRetries bounds attempts after the first one for 429, 5xx and network errors.
const maxRetries = 3

// statusError is a retryable answer; wait carries Retry-After when sent.
type statusError struct {
	code int
	wait time.Duration
}

func (e *statusError) Error() string { return fmt.Sprintf("remote %d", e.code) }

// hintedBackOff prefers the server's Retry-After over the exponential step.
type hintedBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.hint <= 0 {
		return next
	}
	d := b.hint
	b.hint = 0
	return d
}

func newBackOff() *hintedBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = 0
	return &hintedBackOff{BackOff: backoff.WithMaxRetries(exp, maxRetries)}
}

// do sends one rate limited request, retrying transient failures. in is
// JSON encoded when non-nil; out is decoded when non-nil.
func (c *Client) do(ctx context.Context, endpoint, method, u string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}

	bo := newBackOff()
	op := func() error {
		if err := c.rl.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := c.attempt(ctx, endpoint, method, u, payload, out)
		var se *statusError
		if errors.As(err, &se) {
			bo.hint = se.wait
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// attempt performs a single round trip. Errors that must not be retried are
// wrapped with backoff.Permanent.
func (c *Client) attempt(ctx context.Context, endpoint, method, u string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "review-monitor/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("sheets", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("sheets", endpoint, resp.StatusCode, time.Since(start))

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		if out == nil || code == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", endpoint, err))
		}
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return &statusError{code: code, wait: retryAfter(resp.Header.Get("Retry-After"))}
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(msg))
	switch code {
	case http.StatusBadRequest:
		if strings.Contains(text, "Unable to parse range") {
			return backoff.Permanent(ErrBadRange)
		}
		return backoff.Permanent(fmt.Errorf("bad request: %s", text))
	case http.StatusNotFound:
		return backoff.Permanent(ErrNotFound)
	case http.StatusUnauthorized:
		return backoff.Permanent(ErrUnauthorized)
	case http.StatusForbidden:
		return backoff.Permanent(ErrForbidden)
	}
	return backoff.Permanent(fmt.Errorf("status %d: %s", code, text))
}

// retryAfter reads seconds or an HTTP date; 0 when absent or in the past.
func retryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}
