package forward

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/fleetsight/collector/internal/retry"
)

// Classify maps one delivery attempt to a retry verdict. Transport errors
// (connection refused, DNS, timeouts) and overload responses are worth
// retrying; any other completed response settles the attempt, since a sink
// that rejected the payload once will reject it identically next time.
func Classify(resp *resty.Response, err error) retry.Outcome {
	if err != nil {
		return retry.Retry(err)
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests:
		return retry.Retry(fmt.Errorf("sink rate limited: %s", resp.Status()))
	case status >= http.StatusInternalServerError:
		return retry.Retry(fmt.Errorf("sink error: %s", resp.Status()))
	case status >= http.StatusOK:
		return retry.Succeed()
	default:
		// 1xx responses never carry a final verdict.
		return retry.Retry(fmt.Errorf("unexpected sink response: %s", resp.Status()))
	}
}
