package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// httpAdapter carries the plumbing every HTTP-backed adapter shares: the
// client, the per-account token bucket and the platform's explicit
// status-code classification table.
type httpAdapter struct {
	name    string
	baseURL string
	client  *http.Client
	limits  *accountLimiters
	// codes maps HTTP status to failure kind. Statuses absent from the
	// table classify as transient, which keeps them retryable.
	codes map[int]ErrorKind
}

func (a *httpAdapter) Platform() string { return a.name }

// allow consumes a rate-limit token or surfaces the backoff hint.
func (a *httpAdapter) allow(account string) error {
	if delay, ok := a.limits.take(account); !ok {
		return RateLimited(delay)
	}
	return nil
}

// classify maps a non-2xx response through the platform's table. The
// Retry-After header, when present, overrides the default backoff hint.
func (a *httpAdapter) classify(status int, header http.Header, body string) error {
	kind, ok := a.codes[status]
	if !ok {
		if status >= 500 {
			kind = KindTransient
		} else {
			kind = KindRejected
		}
	}
	reason := fmt.Sprintf("%s returned %d: %s", a.name, status, truncate(body, 300))
	switch kind {
	case KindAuthExpired:
		return AuthExpired(reason)
	case KindRateLimited:
		return &DispatchError{Kind: KindRateLimited, Reason: reason, RetryAfter: retryAfterHint(header)}
	case KindRejected:
		return Rejected(reason)
	default:
		return Transient(reason, nil)
	}
}

func retryAfterHint(header http.Header) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 30 * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type remoteID struct {
	ID string `json:"id"`
}

// postForm submits a form-encoded request and decodes {"id": ...} from the
// response body.
func (a *httpAdapter) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", Transient("build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

// postJSON submits a JSON request with a bearer token and decodes
// {"id": ...} from the response body.
func (a *httpAdapter) postJSON(ctx context.Context, path, accessToken string, payload interface{}, extraHeader map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", Transient("encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", Transient("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for k, v := range extraHeader {
		req.Header.Set(k, v)
	}
	return a.do(req)
}

// postJSONEnvelope is postJSON for APIs that wrap the result as
// {"data": {"id": ...}} (Twitter v2 style).
func (a *httpAdapter) postJSONEnvelope(ctx context.Context, path, accessToken string, payload interface{}, extraHeader map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", Transient("encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", Transient("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for k, v := range extraHeader {
		req.Header.Set(k, v)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", Classify(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", a.classify(resp.StatusCode, resp.Header, string(raw))
	}
	var envelope struct {
		Data remoteID `json:"data"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Data.ID != "" {
		return envelope.Data.ID, nil
	}
	return "", nil
}

func (a *httpAdapter) do(req *http.Request) (string, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return "", Classify(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", a.classify(resp.StatusCode, resp.Header, string(body))
	}
	var rid remoteID
	if json.Unmarshal(body, &rid) == nil && rid.ID != "" {
		return rid.ID, nil
	}
	return "", nil
}
