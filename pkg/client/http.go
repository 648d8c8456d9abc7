package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	opHistory             = "history"
	opSendMessage         = "send-message"
	opStartSummarization  = "start-summarization"
	opSummarizationStatus = "summarization-status"
	opShouldSendProactive = "should-send-proactive"
	opProactiveMessage    = "proactive-message"
	opWebSearch           = "web-search"
	opReminisce           = "reminisce"
)

var endpoints = map[string]struct {
	method string
	path   string
}{
	opHistory:             {http.MethodGet, "/history"},
	opSendMessage:         {http.MethodPost, "/message"},
	opStartSummarization:  {http.MethodPost, "/summarize"},
	opSummarizationStatus: {http.MethodGet, "/summarize/status"},
	opShouldSendProactive: {http.MethodGet, "/proactive/should-send"},
	opProactiveMessage:    {http.MethodPost, "/proactive"},
	opWebSearch:           {http.MethodPost, "/background-action/web-search"},
	opReminisce:           {http.MethodPost, "/background-action/reminisce"},
}

// HTTPClientOptions configures NewHTTPClient.
type HTTPClientOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTP overrides the underlying client; Timeout is ignored when set.
	HTTP *http.Client
}

// HTTPClient talks to the conversation service over JSON/HTTP with bearer auth.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ Conversation = &HTTPClient{}

func NewHTTPClient(opts HTTPClientOptions) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("conversation client: empty base url")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, errors.Errorf("conversation client: base url %q must be http(s)", base)
	}
	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{baseURL: base, token: opts.Token, http: hc}, nil
}

func (c *HTTPClient) History(ctx context.Context) ([]MessageRecord, error) {
	return c.messages(ctx, opHistory, nil)
}

func (c *HTTPClient) SendMessage(ctx context.Context, text string, images []ImagePayload) ([]MessageRecord, error) {
	if images == nil {
		images = []ImagePayload{}
	}
	return c.messages(ctx, opSendMessage, sendMessageRequest{Text: text, Images: images})
}

func (c *HTTPClient) StartSummarization(ctx context.Context) (SummarizationStatus, error) {
	var st SummarizationStatus
	err := c.do(ctx, opStartSummarization, nil, &st)
	return st, err
}

func (c *HTTPClient) SummarizationStatus(ctx context.Context) (SummarizationStatus, error) {
	var st SummarizationStatus
	err := c.do(ctx, opSummarizationStatus, nil, &st)
	return st, err
}

func (c *HTTPClient) ShouldSendProactive(ctx context.Context) (bool, error) {
	var resp shouldSendResponse
	if err := c.do(ctx, opShouldSendProactive, nil, &resp); err != nil {
		return false, err
	}
	return resp.ShouldSend, nil
}

func (c *HTTPClient) ProactiveMessage(ctx context.Context) ([]MessageRecord, error) {
	return c.messages(ctx, opProactiveMessage, nil)
}

func (c *HTTPClient) WebSearch(ctx context.Context) ([]MessageRecord, error) {
	return c.messages(ctx, opWebSearch, nil)
}

func (c *HTTPClient) Reminisce(ctx context.Context) ([]MessageRecord, error) {
	return c.messages(ctx, opReminisce, nil)
}

// messages accepts either a bare array or an object with a "messages" field.
func (c *HTTPClient) messages(ctx context.Context, op string, body any) ([]MessageRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, body, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var recs []MessageRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, &Error{Op: op, Kind: KindTransport, Err: errors.Wrap(err, "decode messages")}
		}
		return recs, nil
	}
	var wrapped messagesResponse
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Err: errors.Wrap(err, "decode messages")}
	}
	return wrapped.Messages, nil
}

func (c *HTTPClient) do(ctx context.Context, op string, body any, out any) error {
	ep, ok := endpoints[op]
	if !ok {
		return errors.Errorf("conversation client: unknown operation %q", op)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: KindTransport, Err: errors.Wrap(err, "encode request")}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, c.baseURL+ep.path, reader)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: errors.Wrap(err, "build request")}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ep.method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: errors.Wrap(err, "send request")}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read response")}
	}

	log.Debug().
		Str("component", "client").
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("conversation call finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(op, resp.StatusCode, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func classify(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Kind: KindTransport, StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		e.Detail = detailString(eb)
		switch eb.Code {
		case codeSummarizationInProgress:
			e.Kind = KindConflict
			return e
		case codeInsufficientHistory:
			e.Kind = KindInsufficientHistory
			return e
		}
	} else {
		e.Detail = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusConflict:
		e.Kind = KindConflict
	case op == opReminisce && (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity):
		e.Kind = KindInsufficientHistory
	}
	return e
}

func detailString(eb errorBody) string {
	switch d := eb.Detail.(type) {
	case string:
		return d
	case nil:
		return eb.Error
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprint(d)
		}
		return string(b)
	}
}
