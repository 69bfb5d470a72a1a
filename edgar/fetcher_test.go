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
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient("Penny Vault", "ops@example.com")
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresContact(t *testing.T) {
	_, err := NewClient("Penny Vault", "")
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewClient("Penny Vault", "not-an-email")
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewClient("", "ops@example.com")
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewClient("Penny Vault", "ops@example.com")
	require.NoError(t, err)
}

func TestFetchSetsUserAgent(t *testing.T) {
	var userAgent atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t)
	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "Penny Vault ops@example.com", userAgent.Load())
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchOther4xxNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := newTestClient(t)
	started := time.Now()
	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(started), time.Second)
}

func TestFetchExhaustsRateLimitRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestFetchRetriesServerError(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := newTestClient(t)
	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
}

func TestFetchHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	client := newTestClient(t)
	_, err := client.Fetch(ctx, server.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetchRateLimitSpacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t)
	started := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
	}

	// the shared token bucket spaces requests at 10/s after the burst
	assert.GreaterOrEqual(t, time.Since(started), 150*time.Millisecond)
}

func TestFetchConcurrentBurstHeldToRateLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("burst pacing takes several seconds")
	}

	const numRequests = 50

	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t)

	var wg sync.WaitGroup
	var failures atomic.Int32
	started := time.Now()

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Fetch(context.Background(), server.URL); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(started)

	assert.Zero(t, failures.Load())
	assert.Equal(t, int32(numRequests), served.Load())

	// 50 requests against a 10/s bucket with burst 1 cannot finish in
	// under (numRequests-1) * 100ms no matter how many workers fire at once
	assert.GreaterOrEqual(t, elapsed, time.Duration(numRequests-1)*100*time.Millisecond)
}

func TestStripViewerURL(t *testing.T) {
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/doc.htm",
		StripViewerURL("https://www.sec.gov/ix?doc=/Archives/edgar/data/320193/doc.htm"))
	assert.Equal(t, "https://example.com/plain.htm", StripViewerURL("https://example.com/plain.htm"))
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempt := 1; attempt <= 3; attempt++ {
		base := time.Duration(1<<uint(attempt-1)) * backoffBase
		for i := 0; i < 20; i++ {
			delay := backoffDelay(attempt)
			assert.GreaterOrEqual(t, delay, time.Duration(float64(base)*0.75))
			assert.LessOrEqual(t, delay, time.Duration(float64(base)*1.25))
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2025 07:28:00 GMT"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-5"))
}
