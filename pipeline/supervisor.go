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
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hako/durafmt"
	"github.com/penny-vault/pvfilings/healthcheck"
	"github.com/penny-vault/pvfilings/library"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	minWorkers     = 1
	maxWorkers     = 5
	defaultWorkers = 3
)

// Supervisor fans tickers out over a bounded worker pool. Ticker failures
// are recorded in the run report and never abort the batch.
type Supervisor struct {
	Orchestrator *Orchestrator
	Workers      int
	PingURL      string
}

// RunReport summarizes one supervisor run.
type RunReport struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []*TickerResult
}

// ReportPath is the sink path the markdown run report is written to.
func (report *RunReport) ReportPath() string {
	return fmt.Sprintf("runs/%s.md", report.RunID)
}

// Run processes every ticker, writes the run report to the sink, records the
// run in the library when one is configured, and pings the configured health
// check. The returned error is non-nil only for configuration failures.
func (supervisor *Supervisor) Run(ctx context.Context, tickers []string) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Results:   make([]*TickerResult, len(tickers)),
	}

	workers := supervisor.Workers
	if workers < minWorkers || workers > maxWorkers {
		workers = defaultWorkers
	}

	log.Info().Str("RunID", report.RunID.String()).Int("NumTickers", len(tickers)).
		Int("Workers", workers).Msg("starting ingest run")
	healthcheck.PingStart(ctx, supervisor.PingURL)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for idx, ticker := range tickers {
		idx, ticker := idx, ticker
		group.Go(func() error {
			result := supervisor.Orchestrator.ProcessTicker(groupCtx, ticker)
			report.Results[idx] = result

			if result.Kind.Fatal() {
				return result.Err
			}
			return nil
		})
	}

	err := group.Wait()
	report.FinishedAt = time.Now()

	supervisor.finish(ctx, report, err)
	return report, err
}

func (supervisor *Supervisor) finish(ctx context.Context, report *RunReport, runErr error) {
	markdown := report.Markdown()
	log.Info().Str("RunID", report.RunID.String()).
		Str("Elapsed", durafmt.Parse(report.FinishedAt.Sub(report.StartedAt)).LimitFirstN(2).String()).
		Msg("ingest run finished")

	if supervisor.Orchestrator.Sink != nil {
		if err := supervisor.Orchestrator.Sink.Put(ctx, report.ReportPath(), []byte(markdown)); err != nil {
			log.Error().Err(err).Str("Path", report.ReportPath()).Msg("could not write run report")
		}
	}

	if myLibrary := supervisor.Orchestrator.Library; myLibrary != nil {
		success, _, degraded, failed := report.Counts()
		record := &library.RunRecord{
			RunID:       report.RunID,
			StartedAt:   report.StartedAt,
			FinishedAt:  report.FinishedAt,
			NumTickers:  len(report.Results),
			NumSuccess:  success,
			NumWarnings: degraded,
			NumErrors:   failed,
			Report:      markdown,
		}
		if err := myLibrary.RecordRun(ctx, record); err != nil {
			log.Error().Err(err).Msg("could not record run")
		}
	}

	if runErr != nil {
		healthcheck.PingFailure(ctx, supervisor.PingURL)
	} else {
		healthcheck.PingSuccess(ctx, supervisor.PingURL)
	}
}

// Counts tallies filing outcomes across every ticker.
func (report *RunReport) Counts() (success, skipped, degraded, failed int) {
	for _, result := range report.Results {
		if result == nil {
			continue
		}
		s, sk, d, f := result.Counts()
		success += s
		skipped += sk
		degraded += d
		failed += f
	}
	return
}

// Markdown renders the run report.
func (report *RunReport) Markdown() string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	success, skipped, degraded, failed := report.Counts()
	elapsed := durafmt.Parse(report.FinishedAt.Sub(report.StartedAt)).LimitFirstN(2)

	builder.WriteString(fmt.Sprintf("# Ingest run %s\n\n", report.RunID))
	builder.WriteString(fmt.Sprintf("Started: %s\n\n", report.StartedAt.Format(time.RFC1123)))
	builder.WriteString(fmt.Sprintf("Elapsed: %s\n\n", elapsed))

	builder.WriteString("## Totals\n\n")
	builder.WriteString(p.Sprintf("  * Tickers: %d\n", len(report.Results)))
	builder.WriteString(p.Sprintf("  * Filings ingested: %d\n", success))
	builder.WriteString(p.Sprintf("  * Filings skipped: %d\n", skipped))
	builder.WriteString(p.Sprintf("  * Filings text-only: %d\n", degraded))
	builder.WriteString(p.Sprintf("  * Filings failed: %d\n\n", failed))

	builder.WriteString("## Tickers\n\n")
	for _, result := range report.Results {
		if result == nil {
			continue
		}

		if result.Err != nil {
			builder.WriteString(fmt.Sprintf("  * %s — %s: %s\n", result.Ticker, result.Kind, result.Err))
			continue
		}

		s, sk, d, f := result.Counts()
		builder.WriteString(p.Sprintf("  * %s — %d ingested, %d skipped, %d text-only, %d failed (%s)\n",
			result.Ticker, s, sk, d, f, durafmt.Parse(result.Duration).LimitFirstN(2)))

		for _, outcome := range result.Outcomes {
			if outcome.Err == nil {
				continue
			}
			builder.WriteString(fmt.Sprintf("    * %s %s — %s: %s\n",
				outcome.FilingType, outcome.AccessionNumber, outcome.Kind, outcome.Err))
		}
	}

	return builder.String()
}
