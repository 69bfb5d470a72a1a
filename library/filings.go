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
package library

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
)

// FilingMetadata is one recorded filing, keyed by
// {ticker}-{filing_type}-{fiscal_year}-{fiscal_period}.
type FilingMetadata struct {
	FilingID         string    `db:"filing_id"`
	Ticker           string    `db:"ticker"`
	CIK              string    `db:"cik"`
	CompanyName      string    `db:"company_name"`
	FilingType       string    `db:"filing_type"`
	AccessionNumber  string    `db:"accession_number"`
	FilingDate       time.Time `db:"filing_date"`
	PeriodEndDate    time.Time `db:"period_end_date"`
	FiscalYear       int       `db:"fiscal_year"`
	FiscalPeriod     string    `db:"fiscal_period"`
	FiscalSource     string    `db:"fiscal_source"`
	FiscalConfidence float64   `db:"fiscal_confidence"`
	FactSource       string    `db:"fact_source"`
	NumFacts         int       `db:"num_facts"`
	TextPath         string    `db:"text_path"`
	LLMPath          string    `db:"llm_path"`
	LastUpdated      time.Time `db:"last_updated"`
}

// RecordFiling upserts metadata for a processed filing.
func (myLibrary *Library) RecordFiling(ctx context.Context, meta *FilingMetadata) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `INSERT INTO filings (
	filing_id, ticker, cik, company_name, filing_type, accession_number,
	filing_date, period_end_date, fiscal_year, fiscal_period, fiscal_source,
	fiscal_confidence, fact_source, num_facts, text_path, llm_path, last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
ON CONFLICT (filing_id) DO UPDATE SET
	accession_number = EXCLUDED.accession_number,
	filing_date = EXCLUDED.filing_date,
	period_end_date = EXCLUDED.period_end_date,
	fiscal_source = EXCLUDED.fiscal_source,
	fiscal_confidence = EXCLUDED.fiscal_confidence,
	fact_source = EXCLUDED.fact_source,
	num_facts = EXCLUDED.num_facts,
	text_path = EXCLUDED.text_path,
	llm_path = EXCLUDED.llm_path,
	last_updated = now()`,
		meta.FilingID, meta.Ticker, meta.CIK, meta.CompanyName, meta.FilingType,
		meta.AccessionNumber, meta.FilingDate, meta.PeriodEndDate, meta.FiscalYear,
		meta.FiscalPeriod, meta.FiscalSource, meta.FiscalConfidence, meta.FactSource,
		meta.NumFacts, meta.TextPath, meta.LLMPath)

	return err
}

// FilingExists reports whether a filing id has already been recorded.
func (myLibrary *Library) FilingExists(ctx context.Context, filingID string) (bool, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	exists := false
	err = conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM filings WHERE filing_id = $1)", filingID).Scan(&exists)
	return exists, err
}

// FilingsForTicker returns all recorded filings for a ticker, newest first.
func (myLibrary *Library) FilingsForTicker(ctx context.Context, ticker string) ([]*FilingMetadata, error) {
	var filings []*FilingMetadata
	err := pgxscan.Select(ctx, myLibrary.Pool, &filings,
		`SELECT filing_id, ticker, cik, company_name, filing_type, accession_number,
filing_date, period_end_date, fiscal_year, fiscal_period, fiscal_source,
fiscal_confidence, fact_source, num_facts, text_path, llm_path, last_updated
FROM filings WHERE ticker = $1 ORDER BY filing_date DESC`, ticker)
	return filings, err
}

// RunRecord summarizes one supervisor run.
type RunRecord struct {
	RunID       uuid.UUID `db:"run_id"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
	NumTickers  int       `db:"num_tickers"`
	NumSuccess  int       `db:"num_success"`
	NumWarnings int       `db:"num_warnings"`
	NumErrors   int       `db:"num_errors"`
	Report      string    `db:"report"`
}

// RecordRun saves a supervisor run report.
func (myLibrary *Library) RecordRun(ctx context.Context, run *RunRecord) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `INSERT INTO ingest_runs (
	run_id, started_at, finished_at, num_tickers, num_success, num_warnings,
	num_errors, report
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.RunID, run.StartedAt, run.FinishedAt, run.NumTickers, run.NumSuccess,
		run.NumWarnings, run.NumErrors, run.Report)

	return err
}
