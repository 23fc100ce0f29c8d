// Package activityclient implements the Activity Invoker (C4): it invokes a
// named action over HTTP with configuration, HTTP Basic authentication, a
// fixed per-call timeout, and a bounded retry that only distinguishes
// retryable transport/5xx failures from terminal 4xx failures. The invoker
// never raises through the caller — it always returns a Result, converting
// upstream failures into {status: FAILED, error} per spec.md §4.3/§7. The
// invoker makes its attempts back-to-back with no delay between them, and
// nothing else adds one: internal/executor's action activity reports a
// FAILED Result as a successful activity return, so the durable runtime's
// activity retry policy does not re-run or space out these attempts.
package activityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Status is the per-call outcome the invoker reports to the caller.
type Status string

// Status values.
const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// CallTimeout is the fixed per-call HTTP timeout prescribed by spec.md §4.3/§5.
const CallTimeout = 120 * time.Second

// MaxAttempts is the maximum number of invocation attempts spec.md §4.3
// prescribes (the invoker performs these attempts itself, back-to-back,
// with no sleep between them — see package doc).
const MaxAttempts = 3

// Request describes one action invocation.
type Request struct {
	ActionName string
	Endpoint   string // caller-resolved absolute URL (spec.md §4.3: "caller-supplied to avoid catalog dependency at runtime")
	HTTPMethod string // defaults to POST when empty

	EventData      map[string]any
	Configurations map[string]any
	Data           map[string]any

	AuthUser     string
	AuthPassword string
}

// Result is the invoker's outcome: exactly one of Data or Error is set,
// discriminated by Status.
type Result struct {
	ActionName string         `json:"action_name"`
	Status     Status         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Invoker performs HTTP action invocations. The zero value uses
// http.DefaultClient's transport with CallTimeout applied per call.
type Invoker struct {
	// HTTPClient is the transport used for outbound calls. If nil, a
	// client with CallTimeout is constructed lazily per call.
	HTTPClient *http.Client
}

// New constructs an Invoker using a client with CallTimeout set.
func New() *Invoker {
	return &Invoker{HTTPClient: &http.Client{Timeout: CallTimeout}}
}

// Invoke calls the configured endpoint up to MaxAttempts times, retrying
// only on HTTP 5xx responses and transport errors. A 4xx response is a
// caller error and is never retried. The final outcome — success or
// exhausted failure — is returned as a Result, never an error.
func (inv *Invoker) Invoke(ctx context.Context, req Request) Result {
	client := inv.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: CallTimeout}
	}

	body := map[string]any{
		"event_data":     req.EventData,
		"configurations": req.Configurations,
		"data":           req.Data,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{ActionName: req.ActionName, Status: StatusFailed, Error: fmt.Sprintf("encode request body: %v", err)}
	}

	method := req.HTTPMethod
	if method == "" {
		method = http.MethodPost
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		data, retryable, err := inv.attempt(ctx, client, method, req, payload)
		if err == nil {
			return Result{ActionName: req.ActionName, Status: StatusSuccess, Data: data}
		}
		lastErr = err
		if !retryable {
			break
		}
		if attempt == MaxAttempts {
			break
		}
	}
	return Result{ActionName: req.ActionName, Status: StatusFailed, Error: lastErr.Error()}
}

// attempt performs a single HTTP round trip, returning the decoded response
// body on success, or an error plus whether that error is retryable.
func (inv *Invoker) attempt(ctx context.Context, client *http.Client, method string, req Request, payload []byte) (map[string]any, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, req.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.AuthUser != "" || req.AuthPassword != "" {
		httpReq.SetBasicAuth(req.AuthUser, req.AuthPassword)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, isRetryableTransportError(err), fmt.Errorf("action service request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read action service response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("action service returned %d: %s", resp.StatusCode, truncate(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("action service returned %d: %s", resp.StatusCode, truncate(respBody))
	}

	if len(respBody) == 0 {
		return map[string]any{}, false, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		// Opaque non-JSON response bodies are stored as-is under a
		// single key rather than failing the activity outright.
		return map[string]any{"raw": string(respBody)}, false, nil
	}
	return decoded, false, nil
}

// isRetryableTransportError classifies network-level failures (connection
// refused, DNS errors, timeouts) as retryable; context cancellation is not,
// since retrying a caller-cancelled call would ignore caller intent.
func isRetryableTransportError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return true
}

func truncate(b []byte) string {
	const max = 500
	if len(b) > max {
		return string(b[:max]) + "...(truncated)"
	}
	return string(b)
}
