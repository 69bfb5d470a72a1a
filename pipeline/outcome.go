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

// Package pipeline runs the ingestion flow: resolve a ticker, locate its
// filings, fetch and parse each one, attribute its fiscal placement, and
// store the text and LLM artifacts. Failures are contained at the filing
// and ticker boundaries; only configuration errors abort a run.
package pipeline

import (
	"errors"
	"time"

	"github.com/penny-vault/pvfilings/data"
	"github.com/penny-vault/pvfilings/edgar"
	"github.com/penny-vault/pvfilings/fiscal"
	"github.com/penny-vault/pvfilings/llmfmt"
	"github.com/penny-vault/pvfilings/sink"
	"github.com/penny-vault/pvfilings/xbrl"
)

// ErrorKind is the closed classification of pipeline failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindConfig
	KindNotFound
	KindRateLimited
	KindFetch
	KindParse
	KindSerialize
)

func (kind ErrorKind) String() string {
	switch kind {
	case KindNone:
		return "none"
	case KindConfig:
		return "ConfigError"
	case KindNotFound:
		return "NotFound"
	case KindRateLimited:
		return "RateLimited"
	case KindFetch:
		return "FetchError"
	case KindParse:
		return "ParseError"
	case KindSerialize:
		return "SerializeError"
	}
	return "unknown"
}

// Fatal reports whether the kind aborts the whole run rather than a single
// filing.
func (kind ErrorKind) Fatal() bool {
	return kind == KindConfig
}

// Classify maps an error onto the closed kind set via its sentinel chain.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, edgar.ErrConfig):
		return KindConfig
	case errors.Is(err, edgar.ErrNotFound):
		return KindNotFound
	case errors.Is(err, edgar.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, edgar.ErrFetch):
		return KindFetch
	case errors.Is(err, xbrl.ErrParse):
		return KindParse
	case errors.Is(err, llmfmt.ErrSerialize), errors.Is(err, sink.ErrWrite):
		return KindSerialize
	}
	return KindFetch
}

// Outcome is the record of one filing's trip through the pipeline. It is not
// modified after the filing completes.
type Outcome struct {
	Ticker          string
	FilingType      data.FilingType
	AccessionNumber string
	FilingDate      time.Time
	PeriodEndDate   time.Time

	FilingID    string
	Attribution fiscal.Attribution
	Substituted bool

	FactSource xbrl.FactSource
	NumFacts   int
	TextPath   string
	LLMPath    string

	Skipped  bool
	Kind     ErrorKind
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the filing produced at least its text artifact.
func (outcome *Outcome) Succeeded() bool {
	return !outcome.Skipped && outcome.Kind == KindNone
}

// Degraded reports whether the filing completed but without XBRL facts, so
// only the text artifact exists.
func (outcome *Outcome) Degraded() bool {
	return outcome.Kind == KindParse && outcome.TextPath != ""
}

// TickerResult aggregates a ticker's filing outcomes.
type TickerResult struct {
	Ticker   string
	Outcomes []*Outcome
	Err      error
	Kind     ErrorKind
	Duration time.Duration
}

// Counts tallies the outcomes into (success, skipped, degraded, failed).
func (result *TickerResult) Counts() (success, skipped, degraded, failed int) {
	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Skipped:
			skipped++
		case outcome.Succeeded():
			success++
		case outcome.Degraded():
			degraded++
		default:
			failed++
		}
	}
	return
}
