// Package github implements an authoritative document store backed by a
// directory in a GitHub repository.
//
// Documents are read and written through the repository contents API. Each
// write is a commit on the configured branch. Only top-level ".md" files in
// the configured directory are tracked; README.md is ignored.
//
// # Authentication
//
// A personal access token or OAuth access token with contents read/write
// permission is required. The token is supplied as an [oauth2.TokenSource].
//
// # Rate Limiting
//
// Requests go through a dual-strategy limiter:
//
//  1. Proactive throttling: a token bucket keeps the request rate under the
//     hourly quota.
//
//  2. Reactive handling: X-RateLimit-Remaining and X-RateLimit-Reset are
//     tracked from every response. When the quota is nearly spent the client
//     waits for the reset before continuing.
//
// # Errors
//
// API failures are returned as [*APIError] or [*RateLimitError]. Both match
// the domain sentinels with errors.Is: 404 is [domain.ErrNotFound], 401 is
// [domain.ErrAuthInvalid] and rate limiting is [domain.ErrRateLimited].
//
// # Example Usage
//
//	cfg, _ := github.ParseRepository("acme/requirements")
//	cfg.Dir = "prds"
//	client, _ := github.NewClientWithToken(token)
//	store, _ := github.NewStore(client, cfg)
//
//	entries, err := store.List(ctx)
package github
