// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	// ErrConfig indicates a missing contact identity; SEC rejects anonymous
	// clients with 403 so the error is raised before any network I/O.
	ErrConfig = errors.New("edgar contact not configured")

	ErrNotFound    = errors.New("document not found")
	ErrRateLimited = errors.New("rate limited by edgar")
	ErrFetch       = errors.New("edgar fetch failed")
)

const (
	baseURL = "https://www.sec.gov"

	// SEC fair-access policy caps automated clients at 10 requests per
	// second. The limiter is shared by every worker using this client.
	requestsPerSecond = 10

	maxAttempts    = 3
	backoffBase    = time.Second
	requestTimeout = 30 * time.Second
)

// Client is a rate-limited EDGAR HTTP client. A single Client must be shared
// across all workers so the aggregate request rate stays within the SEC
// ceiling.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	cikCache *haxmap.Map[string, string]
	baseURL  string
}

// NewClient builds an EDGAR client identified by "<organization> <email>"
// as the SEC fair-access policy requires.
func NewClient(organization, email string) (*Client, error) {
	organization = strings.TrimSpace(organization)
	email = strings.TrimSpace(email)

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: contact email is required", ErrConfig)
	}

	if organization == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrConfig)
	}

	httpClient := resty.New().
		SetHeader("User-Agent", fmt.Sprintf("%s %s", organization, email)).
		SetHeader("Accept-Encoding", "gzip, deflate").
		SetTimeout(requestTimeout)

	return &Client{
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		cikCache: haxmap.New[string, string](),
		baseURL:  baseURL,
	}, nil
}

// Fetch retrieves url, blocking on the shared token bucket before each
// attempt. 429 and 5xx responses are retried with exponential backoff; 404
// maps to ErrNotFound; other 4xx responses are not retried.
func (client *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	url = StripViewerURL(url)

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := client.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := client.http.R().SetContext(ctx).Get(url)
		if err != nil {
			// network errors and timeouts count as one retryable attempt
			lastErr = fmt.Errorf("%w: %s", ErrFetch, err.Error())
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		code := resp.StatusCode()
		switch {
		case code < 300:
			return resp.Body(), nil
		case code == 404:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		case code == 429:
			delay := backoffDelay(attempt)
			if retryAfter := parseRetryAfter(resp.Header().Get("Retry-After")); retryAfter > delay {
				delay = retryAfter
			}
			lastErr = fmt.Errorf("%w: %s", ErrRateLimited, url)
			log.Warn().Str("URL", url).Int("Attempt", attempt).Dur("Delay", delay).Msg("edgar returned 429, backing off")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		case code >= 500:
			lastErr = fmt.Errorf("%w: status %d for %s", ErrFetch, code, url)
			log.Warn().Str("URL", url).Int("StatusCode", code).Int("Attempt", attempt).Msg("edgar server error, backing off")
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: status %d for %s", ErrFetch, code, url)
		}
	}

	return nil, lastErr
}

// StripViewerURL converts an inline-XBRL viewer link (ix?doc=) to the
// underlying archive document URL.
func StripViewerURL(url string) string {
	idx := strings.Index(url, "ix?doc=")
	if idx < 0 {
		return url
	}

	doc := url[idx+len("ix?doc="):]
	if strings.HasPrefix(doc, "/") {
		return baseURL + doc
	}
	return doc
}

// backoffDelay computes the exponential backoff for the given attempt with
// +/-25% jitter. Attempt numbers start at 1.
func backoffDelay(attempt int) time.Duration {
	delay := float64(backoffBase) * float64(uint(1)<<uint(attempt-1))
	jitter := (rand.Float64()*0.5 - 0.25) * delay
	return time.Duration(delay + jitter)
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
