// Package randomorg provides a randomness source backed by the random.org integer generator.
package randomorg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the plain-text integer generator endpoint
const DefaultBaseURL = "https://www.random.org/integers/"

// Client fetches true random integers from random.org.
// Requests are rate limited to stay inside the service's fair-use quota.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a random.org client allowing perMinute requests
func NewClient(baseURL string, perMinute int, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		log:     log.With().Str("client", "random.org").Logger(),
	}
}

// GetIntegers returns count integers drawn uniformly from [min, max]
func (c *Client) GetIntegers(ctx context.Context, count, min, max int) ([]int, error) {
	if count <= 0 {
		return []int{}, nil
	}
	if min > max {
		return nil, fmt.Errorf("invalid range [%d, %d]", min, max)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("num", strconv.Itoa(count))
	params.Set("min", strconv.Itoa(min))
	params.Set("max", strconv.Itoa(max))
	params.Set("col", "1")
	params.Set("base", "10")
	params.Set("format", "plain")
	params.Set("rnd", "new")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	values, err := parsePlain(resp.Body, min, max)
	if err != nil {
		return nil, err
	}
	if len(values) != count {
		return nil, fmt.Errorf("expected %d integers, got %d", count, len(values))
	}

	c.log.Debug().Int("count", count).Msg("Fetched random integers")
	return values, nil
}

// parsePlain reads one integer per line, ignoring blank lines
func parsePlain(r io.Reader, min, max int) ([]int, error) {
	var values []int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("unexpected response line %q", line)
		}
		if v < min || v > max {
			return nil, fmt.Errorf("integer %d outside [%d, %d]", v, min, max)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return values, nil
}
