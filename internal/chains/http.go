package chains

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const defaultHTTPTimeout = 15 * time.Second

// newRESTClient builds the resty client shared by the HTTP-API backed chains.
// The API key header is only sent when a key is configured. A positive
// requestsPerSecond paces outgoing requests; callers wait on their own context.
func newRESTClient(baseURL, apiKeyHeader, apiKey string, requestsPerSecond float64) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultHTTPTimeout).
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetHeader(apiKeyHeader, apiKey)
	}
	if requestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		client.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
			if err := limiter.Wait(r.Context()); err != nil {
				return fmt.Errorf("node request throttle: %w", err)
			}
			return nil
		})
	}
	return client
}

// checkStatus turns a non-2xx response into an error
func checkStatus(resp *resty.Response, endpoint string) error {
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("%s: unexpected status %d: %s", endpoint, resp.StatusCode(), truncate(resp.String(), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
