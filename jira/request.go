package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Response is the uniform result of an executed request. Err is set when
// no response was received; StatusCode and Body are valid otherwise.
type Response struct {
	Request    *http.Request
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Err        error
}

func (r *Response) decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// newRequest builds a JSON request for path, relative to the API root.
// path may carry a query string.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	return c.buildRequest(ctx, c.apiURL, method, path, body)
}

func (c *Client) buildRequest(ctx context.Context, root *url.URL, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling payload: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u, err := resolve(root, path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolve joins a relative path (and query) onto root.
func resolve(root *url.URL, path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("path %q must be relative", path)
	}
	return root.ResolveReference(ref), nil
}

// execute makes sure a session exists, sends req and notifies observers.
// Transport failures are reported in Response.Err; the returned error is
// only set when the session could not be established.
func (c *Client) execute(ctx context.Context, req *http.Request) (*Response, error) {
	cred, err := c.session.ensure(ctx)
	if err != nil {
		return nil, err
	}
	cred.apply(req)

	var requestBody []byte
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			requestBody, _ = io.ReadAll(rc)
			_ = rc.Close()
		}
	}

	sendCtx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()

	start := time.Now()
	resp := &Response{Request: req}
	httpResp, err := c.httpClient.Do(req.WithContext(sendCtx))
	if err != nil {
		resp.Err = err
	} else {
		resp.StatusCode = httpResp.StatusCode
		resp.Status = httpResp.Status
		resp.Header = httpResp.Header
		resp.Body, resp.Err = io.ReadAll(httpResp.Body)
		drain(httpResp.Body)
	}

	c.notify(ctx, RequestEvent{
		ID:          uuid.NewString(),
		URI:         req.URL.String(),
		Method:      req.Method,
		Request:     req,
		RequestBody: requestBody,
		Response:    resp,
		Duration:    time.Since(start),
	})

	return resp, nil
}

// assertStatus classifies resp: a transport failure, an unexpected status,
// or success.
func assertStatus(resp *Response, expected int) error {
	if resp.Err != nil {
		te := &TransportError{Err: resp.Err}
		if resp.Request != nil {
			te.Method = resp.Request.Method
			te.URL = resp.Request.URL.String()
		}
		return te
	}
	if resp.StatusCode != expected {
		return newStatusError(resp)
	}
	return nil
}
