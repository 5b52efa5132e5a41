package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// authPathPattern matches the endpoints that must never carry a bearer token.
var authPathPattern = regexp.MustCompile(`^/api/auth/(login|register)\b`)

// IsAuthEndpoint reports whether path is the login or register endpoint.
func IsAuthEndpoint(path string) bool {
	return authPathPattern.MatchString(path)
}

type PipelineConfig struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Request describes one outbound call before decoration.
type Request struct {
	Method      string
	Path        string
	Header      http.Header
	Body        []byte
	ContentType string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// FilePart is a file attached to a multipart request.
type FilePart struct {
	Field    string
	FileName string
	Data     []byte
}

type RequestPipeline interface {
	Do(ctx context.Context, req Request) (*Response, error)
	DoJSON(ctx context.Context, method, path string, in any, out any) error
	DoMultipart(ctx context.Context, path string, fields map[string]string, file *FilePart, out any) error
	Decorate(ctx context.Context, req *http.Request) error
}

type requestPipeline struct {
	baseURL *url.URL
	timeout time.Duration
	client  *http.Client
	tokens  TokenSource
}

func NewRequestPipeline(cfg PipelineConfig, tokens TokenSource) (RequestPipeline, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &requestPipeline{
		baseURL: base,
		timeout: timeout,
		client:  client,
		tokens:  tokens,
	}, nil
}

// Decorate implements RequestPipeline. It attaches the session token as a
// bearer credential, except on the login and register endpoints where any
// stale Authorization header is removed.
func (p *requestPipeline) Decorate(ctx context.Context, req *http.Request) error {
	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	if IsAuthEndpoint(path) || p.tokens == nil {
		req.Header.Del("Authorization")
		return nil
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		req.Header.Del("Authorization")
		return nil
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Do implements RequestPipeline. Any failure is returned as *APIError.
func (p *requestPipeline) Do(ctx context.Context, r Request) (*Response, error) {
	target, err := p.baseURL.Parse(r.Path)
	if err != nil {
		return nil, &APIError{Kind: ErrTransport, Message: "invalid request path", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, &APIError{Kind: ErrTransport, Message: "Request failed", Err: err}
	}
	for k, values := range r.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.Header.Set("Accept", "application/json")

	if err := p.Decorate(ctx, req); err != nil {
		return nil, &APIError{Kind: ErrTransport, Message: "could not read session", Err: err}
	}

	endpoint := target.Path
	started := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		apiErr := transportError(err, p.timeout)
		observeBackendCall(endpoint, "transport_error", started)
		log.Printf("⚠️  %s %s failed: %v\n", method, endpoint, err)
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observeBackendCall(endpoint, "transport_error", started)
		return nil, transportError(err, p.timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(resp.StatusCode, body)
		observeBackendCall(endpoint, fmt.Sprintf("%dxx", resp.StatusCode/100), started)
		log.Printf("⚠️  %s %s returned %d: %s\n", method, endpoint, resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}

	observeBackendCall(endpoint, "ok", started)

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// DoJSON implements RequestPipeline. out may be nil.
func (p *requestPipeline) DoJSON(ctx context.Context, method, path string, in any, out any) error {
	req := Request{Method: method, Path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		req.Body = body
		req.ContentType = "application/json"
	}

	resp, err := p.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeBody(resp, out)
}

// DoMultipart implements RequestPipeline.
func (p *requestPipeline) DoMultipart(ctx context.Context, path string, fields map[string]string, file *FilePart, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if file != nil {
		fw, err := mw.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := fw.Write(file.Data); err != nil {
			return fmt.Errorf("failed to write form file: %w", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := p.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	if err != nil {
		return err
	}
	return decodeBody(resp, out)
}

func decodeBody(resp *Response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{
			Kind:    ErrServer,
			Message: "invalid response from server",
			Status:  resp.Status,
			Body:    resp.Body,
			Err:     err,
		}
	}
	return nil
}

func transportError(err error, timeout time.Duration) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{
			Kind:    ErrTransport,
			Message: fmt.Sprintf("timeout of %s exceeded", timeout),
			Err:     err,
		}
	}

	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		msg = "Network error: " + urlErr.Err.Error()
	}
	if strings.TrimSpace(msg) == "" {
		msg = "Request failed"
	}
	return &APIError{Kind: ErrTransport, Message: msg, Err: err}
}

func statusError(status int, body []byte) *APIError {
	kind := ErrServer
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = ErrAuth
	}

	var payload any
	_ = json.Unmarshal(body, &payload)

	return &APIError{
		Kind:    kind,
		Message: ExtractMessage(payload, fmt.Sprintf("Request failed with status code %d", status)),
		Status:  status,
		Body:    body,
		Err:     fmt.Errorf("unexpected status %d", status),
	}
}
