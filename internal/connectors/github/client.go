package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/reqsync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second
)

// Client wraps the go-github contents API with rate limiting and retries.
type Client struct {
	gh          *gh.Client
	rateLimiter *RateLimiter
	retryDelay  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL    string
	rate       float64
	retryDelay time.Duration
	httpClient *http.Client
}

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise or a test server.
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithRate sets the proactive request rate per second. Zero disables it.
func WithRate(perSecond float64) ClientOption {
	return func(o *clientOptions) { o.rate = perSecond }
}

// WithRetryDelay sets the initial backoff between retries.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.retryDelay = d }
}

// WithHTTPClient replaces the transport. The token source is ignored.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = hc }
}

// NewClient creates a GitHub API client authenticating with ts. A nil
// token source sends unauthenticated requests.
func NewClient(ts oauth2.TokenSource, opts ...ClientOption) (*Client, error) {
	o := clientOptions{rate: ProactiveRate, retryDelay: RetryDelay}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.httpClient
	if hc == nil {
		if ts != nil {
			hc = oauth2.NewClient(context.Background(), ts)
		} else {
			hc = &http.Client{}
		}
		hc.Timeout = DefaultTimeout
	}

	client := gh.NewClient(hc)
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{
		gh:          client,
		rateLimiter: NewRateLimiter(o.rate),
		retryDelay:  o.retryDelay,
	}, nil
}

// NewClientWithToken creates a client with a static access token.
// Works for both PAT and OAuth access tokens.
func NewClientWithToken(token string, opts ...ClientOption) (*Client, error) {
	return NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), opts...)
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// ListDir returns the entries of a directory at ref.
func (c *Client) ListDir(ctx context.Context, owner, repo, dir, ref string) ([]*gh.RepositoryContent, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	return call(ctx, c, "list contents", func() ([]*gh.RepositoryContent, *gh.Response, error) {
		file, entries, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, dir, opts)
		if err == nil && file != nil {
			return nil, resp, fmt.Errorf("%s: %w", dir, ErrNotAFile)
		}
		return entries, resp, err
	})
}

// GetFile returns the decoded text and blob SHA of a file at ref.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (text, sha string, err error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	content, err := call(ctx, c, "get contents", func() (*gh.RepositoryContent, *gh.Response, error) {
		file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
		if err == nil && file == nil {
			return nil, resp, fmt.Errorf("%s: %w", path, ErrNotAFile)
		}
		return file, resp, err
	})
	if err != nil {
		return "", "", err
	}

	decoded, err := content.GetContent()
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, content.GetSHA(), nil
}

// PutFile creates a file, or updates it when opts carries the current SHA.
// It returns the new blob SHA.
func (c *Client) PutFile(
	ctx context.Context, owner, repo, path string, opts *gh.RepositoryContentFileOptions,
) (string, error) {
	put := c.gh.Repositories.CreateFile
	op := "create file"
	if opts.SHA != nil {
		put = c.gh.Repositories.UpdateFile
		op = "update file"
	}
	res, err := call(ctx, c, op, func() (*gh.RepositoryContentResponse, *gh.Response, error) {
		return put(ctx, owner, repo, path, opts)
	})
	if err != nil {
		return "", err
	}
	return res.Content.GetSHA(), nil
}

// DeleteFile removes a file. opts must carry the current SHA.
func (c *Client) DeleteFile(
	ctx context.Context, owner, repo, path string, opts *gh.RepositoryContentFileOptions,
) error {
	_, err := call(ctx, c, "delete file", func() (*gh.RepositoryContentResponse, *gh.Response, error) {
		return c.gh.Repositories.DeleteFile(ctx, owner, repo, path, opts)
	})
	return err
}

// ValidateCredentials checks the token with a cheap authenticated call.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	_, err := call(ctx, c, "validate credentials", func() (*gh.User, *gh.Response, error) {
		return c.gh.Users.Get(ctx, "")
	})
	return err
}

// call runs one API request under the rate limiter, retrying server
// errors with exponential backoff.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, *gh.Response, error)) (T, error) {
	var zero T
	delay := c.retryDelay

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limit wait: %w", err)
		}

		out, resp, err := fn()
		c.updateRateLimitFromResponse(resp)
		if err == nil {
			return out, nil
		}

		wrapped := c.wrapError(err, op)
		if attempt >= MaxRetries || !isTransient(wrapped) {
			return zero, wrapped
		}

		logger.Debug("GitHub %s failed (attempt %d), retrying in %s: %v", op, attempt+1, delay, wrapped)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

// isTransient reports whether a request may succeed if repeated.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// updateRateLimitFromResponse updates the rate limiter from GitHub response headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		resetAt := time.Now()
		if abuseErr.RetryAfter != nil {
			resetAt = resetAt.Add(*abuseErr.RetryAfter)
		}
		return &RateLimitError{ResetAt: resetAt, Limit: c.rateLimiter.Limit()}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
		if ghErr.Response.Request != nil && ghErr.Response.Request.URL != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return apiErr
	}

	return fmt.Errorf("%s: %w", operation, err)
}
