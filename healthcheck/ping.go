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

// Package healthcheck pings a healthchecks.io check around ingest runs.
// Pings are best effort: a monitoring failure never fails the run.
package healthcheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

var ErrStatus = errors.New("status code is invalid")

// PingStart signals the beginning of a run.
func PingStart(ctx context.Context, pingURL string) {
	ping(ctx, pingURL, "/start")
}

// PingSuccess signals a completed run.
func PingSuccess(ctx context.Context, pingURL string) {
	ping(ctx, pingURL, "")
}

// PingFailure signals a failed run.
func PingFailure(ctx context.Context, pingURL string) {
	ping(ctx, pingURL, "/fail")
}

func ping(ctx context.Context, pingURL string, suffix string) {
	if pingURL == "" {
		return
	}

	client := resty.New()
	resp, err := client.R().SetContext(ctx).Get(pingURL + suffix)
	if err != nil {
		log.Warn().Err(err).Str("PingURL", pingURL).Msg("health check ping failed")
		return
	}

	if resp.StatusCode() != 200 {
		err := fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
		log.Warn().Err(err).Str("PingURL", pingURL).Msg("health check ping failed")
	}
}
