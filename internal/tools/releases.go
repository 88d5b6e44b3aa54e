package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is used when GITHUB_API_URL is not set.
const DefaultAPIURL = "https://api.github.com"

// RetryPolicy bounds how often a metadata request is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is one retry after a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(attempts-1)),
		ctx,
	)
}

// ReleaseClient resolves "latest" version tokens through the GitHub releases API.
type ReleaseClient struct {
	BaseURL string
	HTTP    *http.Client
	Policy  RetryPolicy
	// Limiter paces metadata calls shared by concurrently resolving tools.
	Limiter *rate.Limiter
}

// NewReleaseClient returns a client against baseURL, defaulting to the public API.
func NewReleaseClient(baseURL string) *ReleaseClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIURL
	}
	return &ReleaseClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Policy:  DefaultRetryPolicy(),
		Limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 4),
	}
}

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// ResolveVersion turns a requested version token into a concrete version.
// Explicit tokens are returned unchanged without touching the network.
// Tools without a release repository keep "latest" as a symbolic token.
func (c *ReleaseClient) ResolveVersion(ctx context.Context, def ToolDefinition, token, auth string) (string, error) {
	if !IsLatest(token) {
		return token, nil
	}
	if def.Repo == "" {
		return Latest, nil
	}

	policy := c.Policy
	if def.LatestAttempts > 0 {
		policy.MaxAttempts = def.LatestAttempts
	}

	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.BaseURL, def.Repo)
	var release githubRelease
	if err := c.fetchJSON(ctx, policy, endpoint, auth, &release); err != nil {
		return "", &VersionResolutionError{Tool: def.Display, Err: err}
	}

	version := strings.TrimPrefix(release.TagName, "v")
	if version == "" {
		return "", &VersionResolutionError{Tool: def.Display}
	}
	log.WithField("tool", def.Name).Debugf("resolved latest version %s", version)
	return version, nil
}

type statusError struct {
	status int
	text   string
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %s", e.text) }

// fetchJSON GETs url and decodes the body into out. Transport failures, 5xx and
// 429 responses are retried under policy; other failures are permanent.
func (c *ReleaseClient) fetchJSON(ctx context.Context, policy RetryPolicy, url, auth string, out any) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	attempt := 0
	op := func() error {
		attempt++
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "setup-clojure")
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.WithError(err).WithField("attempt", attempt).Debug("release metadata request failed")
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &statusError{status: resp.StatusCode, text: resp.Status}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&statusError{status: resp.StatusCode, text: resp.Status})
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode release metadata: %w", err))
		}
		return nil
	}

	err := backoff.Retry(op, policy.backOff(ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
