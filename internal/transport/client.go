package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 64 << 10

// Turn is the input of one chat request
type Turn struct {
	Text     string
	Language string
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Messages []wireMessage `json:"messages"`
	Language string        `json:"language"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client sends chat turns to the chat route. At most one call is in flight
// per client: starting a call cancels the previous one first.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration

	mu      sync.Mutex
	current *Call
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each call, from sending the request to the end of the
// body. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send cancels any call in flight and posts turn to the chat route. The
// returned call owns the response and must be closed by the caller.
func (c *Client) Send(ctx context.Context, turn Turn) (*Call, error) {
	call, err := c.Prepare(ctx, turn)
	if err != nil {
		return nil, err
	}
	if err := call.Do(); err != nil {
		call.Close()
		return nil, err
	}
	return call, nil
}

// Prepare cancels any call in flight and registers a new call for turn
// without touching the network. The call becomes the one Cancel targets
// before Prepare returns; Do sends it.
func (c *Client) Prepare(ctx context.Context, turn Turn) (*Call, error) {
	call := c.begin(ctx)

	body, err := sonic.Marshal(requestBody{
		Messages: []wireMessage{{Role: "user", Content: turn.Text}},
		Language: turn.Language,
	})
	if err != nil {
		call.Close()
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(call.ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		call.Close()
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	call.req = req

	log.Debug().
		Str("endpoint", c.endpoint).
		Str("language", turn.Language).
		Int("text_length", len(turn.Text)).
		Msg("Sending chat request")
	return call, nil
}

// Cancel cancels the call in flight, if any
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		log.Debug().Msg("Cancelling in-flight chat request")
		c.current.cancel(ErrCanceled)
		c.current = nil
	}
}

// InFlight reports whether a call is currently active
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Client) begin(parent context.Context) *Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		log.Debug().Msg("Superseding in-flight chat request")
		c.current.cancel(ErrCanceled)
	}

	ctx, cancel := context.WithCancelCause(parent)
	call := &Call{ctx: ctx, cancel: cancel, client: c}
	if c.timeout > 0 {
		call.ctx, call.stopTimer = context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
	}

	c.current = call
	return call
}

func (c *Client) release(call *Call) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == call {
		c.current = nil
	}
}

func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr.Body = string(body)
	if err != nil {
		log.Debug().Err(err).Int("status", resp.StatusCode).Msg("Failed to read error body")
		return apiErr
	}

	var payload errorBody
	if err := sonic.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}

// Call is one in-flight chat request
type Call struct {
	Response *http.Response

	req       *http.Request
	ctx       context.Context
	cancel    context.CancelCauseFunc
	stopTimer context.CancelFunc
	client    *Client
	closeOnce sync.Once
}

// Do sends the prepared request and waits for the response headers. A
// non-2xx status becomes an *APIError, unless the call was cancelled
// meanwhile. Do must be called at most once; the caller still closes the
// call on failure.
func (c *Call) Do() error {
	resp, err := c.client.httpClient.Do(c.req)
	if err != nil {
		return c.Err(err)
	}
	c.Response = resp

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readAPIError(resp)
		if c.Canceled() {
			return ErrCanceled
		}
		log.Warn().
			Int("status", apiErr.Status).
			Str("error", apiErr.Message).
			Msg("Chat route returned failure status")
		return apiErr
	}
	return nil
}

// Context is cancelled when the call is superseded, cancelled, or times out
func (c *Call) Context() context.Context {
	return c.ctx
}

// Body returns the response body
func (c *Call) Body() io.Reader {
	if c.Response == nil || c.Response.Body == nil {
		return http.NoBody
	}
	return c.Response.Body
}

// Canceled reports whether the call was superseded or cancelled. Results of
// a cancelled call must be discarded.
func (c *Call) Canceled() bool {
	return isCancellation(context.Cause(c.ctx))
}

// Err maps an error observed during the call onto the transport taxonomy:
// ErrCanceled for cancellation, *NetworkError for everything else.
func (c *Call) Err(err error) error {
	if err == nil {
		return nil
	}

	cause := context.Cause(c.ctx)
	switch {
	case isCancellation(cause):
		return ErrCanceled
	case cause != nil:
		return &NetworkError{Err: cause}
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	return &NetworkError{Err: err}
}

// Close releases the response and the client's reference to this call. It
// is safe to call more than once.
func (c *Call) Close() {
	c.closeOnce.Do(func() {
		if c.Response != nil && c.Response.Body != nil {
			c.Response.Body.Close()
		}
		if c.stopTimer != nil {
			c.stopTimer()
		}
		c.client.release(c)
		c.cancel(nil)
	})
}
