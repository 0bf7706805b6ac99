package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
)

// HTTPClient posts requests to a page host's messages endpoint.
type HTTPClient struct {
	// BaseURL is the host root, for example http://localhost:8080.
	BaseURL string
	PageID  string
	Client  *http.Client
	// Header is added to every request, for example an API key.
	Header http.Header
}

// envelope mirrors the host's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Send implements Sender. An unknown page or an unreachable host yields
// ErrNoResponder.
func (c *HTTPClient) Send(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/pages/" + c.PageID + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	for k, v := range c.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return Response{}, fmt.Errorf("%s: %w", endpoint, errors.ErrNoResponder)
		}
		return Response{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return Response{}, fmt.Errorf("page %s: %w", c.PageID, errors.ErrNoResponder)
	}
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return Response{}, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Response{}, errors.NewParse("JSON", endpoint, err)
	}
	if !env.Success {
		msg := httpResp.Status
		if env.Error != nil {
			msg = env.Error.Message
		}
		return Response{}, fmt.Errorf("%s: %s", req.Action, msg)
	}
	var resp Response
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			return Response{}, errors.NewParse("JSON", endpoint, err)
		}
	}
	return resp, nil
}
