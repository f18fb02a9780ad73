package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"directory-console/internal/apperr"
)

const requestIDHeader = "X-Request-ID"

// Tokens supplies bearer tokens and recovers from a rejected one.
type Tokens interface {
	AccessToken() (string, bool)
	RefreshIfStale(ctx context.Context, sentWith string) (string, error)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  logrus.FieldLogger
	// Transport replaces the default HTTP transport; tests use it to reach
	// an in-process server.
	Transport http.RoundTripper
}

// Client is the single gateway to the REST backend.
type Client struct {
	http *resty.Client
	log  logrus.FieldLogger

	mu     sync.RWMutex
	tokens Tokens
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// call describes one request. A call with authorize set carries the bearer
// token; with refresh set as well, a 401 triggers one refresh and one retry.
type call struct {
	method    string
	path      string
	query     url.Values
	body      interface{}
	authorize bool
	refresh   bool
}

func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "api")

	h := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(log)
	if opts.Timeout > 0 {
		h.SetTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		h.SetTransport(opts.Transport)
	}

	h.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		log.WithFields(logrus.Fields{
			"method":     resp.Request.Method,
			"url":        resp.Request.URL,
			"status":     resp.StatusCode(),
			"latency":    resp.Time(),
			"request_id": resp.Request.Header.Get(requestIDHeader),
		}).Debug("API response")
		return nil
	})

	return &Client{http: h, log: log}
}

// UseTokens binds the token source used for authorized calls.
func (c *Client) UseTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

func (c *Client) tokenSource() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// do runs the call and decodes the data member of the response into out.
func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	op := cl.method + " " + cl.path
	tokens := c.tokenSource()

	var token string
	if cl.authorize && tokens != nil {
		token, _ = tokens.AccessToken()
	}

	resp, err := c.send(ctx, cl, token)
	if err != nil {
		return transportError(ctx, op, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized && cl.refresh && tokens != nil {
		c.log.WithField("op", op).Debug("Access token rejected, refreshing")
		fresh, err := tokens.RefreshIfStale(ctx, token)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, cl, fresh)
		if err != nil {
			return transportError(ctx, op, err)
		}
	}

	return decode(op, resp, out)
}

func (c *Client) send(ctx context.Context, cl call, token string) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString())
	if token != "" {
		req.SetAuthToken(token)
	}
	if cl.query != nil {
		req.SetQueryParamsFromValues(cl.query)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	return req.Execute(cl.method, cl.path)
}

func transportError(ctx context.Context, op string, err error) error {
	// Cancellation by the caller is not a network failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return apperr.Network(op, err)
}

func decode(op string, resp *resty.Response, out interface{}) error {
	status := resp.StatusCode()
	body := resp.Body()

	var env envelope
	enveloped := len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &env) == nil

	if status >= http.StatusBadRequest {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return apperr.New(kindForStatus(status), op, status, msg)
	}

	if out == nil {
		return nil
	}

	data := body
	if enveloped && len(env.Data) > 0 {
		data = env.Data
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperr.Error{Kind: apperr.KindServer, Op: op, Status: status, Message: "malformed response", Err: err}
	}
	return nil
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusUnauthorized:
		return apperr.KindAuth
	}
	return apperr.KindServer
}
