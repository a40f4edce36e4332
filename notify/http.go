package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/pagewatch/horosafe"
)

// maxErrorBody bounds the provider response excerpt kept in a SendError.
const maxErrorBody = 512

// DefaultClient is used by channels constructed with a nil client.
var DefaultClient = &http.Client{Timeout: 15 * time.Second}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return DefaultClient
	}
	return c
}

func postJSON(ctx context.Context, client *http.Client, channel, endpoint string, body any, header http.Header) error {
	data, err := json.Marshal(body)
	if err != nil {
		return Permanent(&SendError{Channel: channel, Err: fmt.Errorf("marshal payload: %w", err)})
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return Permanent(&SendError{Channel: channel, Err: fmt.Errorf("build request: %w", err)})
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return do(client, channel, req)
}

func postForm(ctx context.Context, client *http.Client, channel, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Permanent(&SendError{Channel: channel, Err: fmt.Errorf("build request: %w", err)})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, channel, req)
}

func do(client *http.Client, channel string, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return &SendError{Channel: channel, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	excerpt, _ := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	return &SendError{
		Channel:    channel,
		StatusCode: resp.StatusCode,
		Body:       Truncate(strings.TrimSpace(string(excerpt)), maxErrorBody),
	}
}
