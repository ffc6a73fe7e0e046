package forward

import (
	"bytes"
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/fleetsight/collector/internal/telemetry"
)

// Bodies at or above this size are gzip-compressed before upload. Screenshot
// payloads dominate here; metric and alert bodies stay well below it.
const gzipThreshold = 32 * 1024

// Client delivers record bodies to the sink over HTTP. Retries live in the
// retry engine, so resty's own retry loop stays disabled.
type Client struct {
	http *resty.Client
}

// NewClient creates a sink client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "fleetsight-collector/1.0").
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient}
}

// Send posts one record body to the sink path for kind. The returned error
// covers transport only; status code handling belongs to Classify.
func (c *Client) Send(ctx context.Context, kind telemetry.Kind, body []byte) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)

	payload := body
	if len(body) >= gzipThreshold {
		if compressed, err := compress(body); err == nil && len(compressed) < len(body) {
			req.SetHeader("Content-Encoding", "gzip")
			payload = compressed
		}
	}

	return req.SetBody(payload).Post(kind.SinkPath())
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
