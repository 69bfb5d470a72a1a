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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/penny-vault/pvfilings/data"
	"github.com/penny-vault/pvfilings/edgar"
	"github.com/penny-vault/pvfilings/fiscal"
	"github.com/penny-vault/pvfilings/htmltext"
	"github.com/penny-vault/pvfilings/library"
	"github.com/penny-vault/pvfilings/llmfmt"
	"github.com/penny-vault/pvfilings/sink"
	"github.com/penny-vault/pvfilings/xbrl"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultFilingTimeout = 5 * time.Minute

// Orchestrator processes one ticker at a time: locate its filings on EDGAR,
// then fetch, parse, attribute, and store each filing. Library may be nil
// when running without a metadata database.
type Orchestrator struct {
	Client   *edgar.Client
	Registry *fiscal.Registry
	Sink     sink.Sink
	Library  *library.Library

	FilingTypes   []data.FilingType
	StartYear     int
	EndYear       int
	FilingTimeout time.Duration
}

// ProcessTicker runs the full pipeline for one ticker. Per-filing errors are
// recorded in the returned outcomes and never abort the remaining filings;
// only a ticker-level failure (CIK unresolved, no filings) sets result.Err.
func (orchestrator *Orchestrator) ProcessTicker(ctx context.Context, ticker string) *TickerResult {
	started := time.Now()
	ticker = data.NormalizeTicker(ticker)

	subLog := log.With().Str("Ticker", ticker).Logger()
	ctx = subLog.WithContext(ctx)

	result := &TickerResult{Ticker: ticker}
	defer func() {
		result.Duration = time.Since(started)
	}()

	company, err := orchestrator.Client.ResolveCompany(ctx, ticker)
	if err != nil {
		subLog.Error().Err(err).Msg("could not resolve company")
		result.Err = err
		result.Kind = Classify(err)
		return result
	}

	refs, err := orchestrator.Client.ListFilings(ctx, ticker, company.CIK,
		orchestrator.FilingTypes, orchestrator.StartYear, orchestrator.EndYear)
	if err != nil {
		subLog.Error().Err(err).Msg("could not list filings")
		result.Err = err
		result.Kind = Classify(err)
		return result
	}

	for _, ref := range refs {
		outcome := orchestrator.processFiling(ctx, company, ref)
		result.Outcomes = append(result.Outcomes, outcome)

		if outcome.Kind.Fatal() {
			result.Err = outcome.Err
			result.Kind = outcome.Kind
			return result
		}
	}

	return result
}

func (orchestrator *Orchestrator) processFiling(ctx context.Context, company *data.Company, ref *data.FilingRef) (outcome *Outcome) {
	started := time.Now()

	timeout := orchestrator.FilingTimeout
	if timeout <= 0 {
		timeout = defaultFilingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	subLog := zerolog.Ctx(ctx).With().Str("Accession", ref.AccessionNumber).
		Str("FilingType", string(ref.FilingType)).Logger()
	ctx = subLog.WithContext(ctx)

	outcome = &Outcome{
		Ticker:          ref.Ticker,
		FilingType:      ref.FilingType,
		AccessionNumber: ref.AccessionNumber,
		FilingDate:      ref.FilingDate,
		Substituted:     ref.Substituted(),
	}
	defer func() {
		outcome.Duration = time.Since(started)
		outcome.PeriodEndDate = ref.PeriodEndDate
	}()

	fail := func(err error) *Outcome {
		outcome.Err = err
		outcome.Kind = Classify(err)
		subLog.Error().Err(err).Str("Kind", outcome.Kind.String()).Msg("filing failed")
		return outcome
	}

	docs, err := orchestrator.Client.DiscoverDocuments(ctx, ref)
	if err != nil {
		return fail(err)
	}

	primaryHTML, err := orchestrator.Client.Fetch(ctx, docs.PrimaryDoc)
	if err != nil {
		return fail(err)
	}

	table, parseErr := orchestrator.parseFacts(ctx, docs, primaryHTML)

	evidence := fiscal.EvidenceFromFacts(table)
	attribution := fiscal.Attribute(orchestrator.Registry, ref.Ticker, ref.FilingType, ref.PeriodEndDate, evidence)
	outcome.Attribution = attribution
	outcome.FilingID = data.FilingID(ref.Ticker, ref.FilingType, attribution.FiscalYear, attribution.FiscalPeriod)

	if skipped, err := orchestrator.alreadyIngested(ctx, outcome); err == nil && skipped {
		subLog.Info().Str("FilingID", outcome.FilingID).Msg("filing already ingested; skipping")
		outcome.Skipped = true
		return outcome
	}

	text, err := htmltext.Extract(primaryHTML, htmltext.Options{FilingType: ref.FilingType})
	if err != nil {
		return fail(fmt.Errorf("%w: %s", xbrl.ErrParse, err.Error()))
	}

	textPath := data.ArtifactPath(ref.Ticker, ref.FilingType, attribution.FiscalYear, attribution.FiscalPeriod, data.ArtifactText)
	if err := orchestrator.Sink.Put(ctx, textPath, []byte(text)); err != nil {
		return fail(err)
	}
	outcome.TextPath = textPath

	if table != nil {
		outcome.FactSource = table.Source
		outcome.NumFacts = len(table.Facts)

		doc := &llmfmt.Document{
			Company:     *company,
			FilingType:  ref.FilingType,
			FilingDate:  ref.FilingDate,
			PeriodEnd:   ref.PeriodEndDate,
			Attribution: attribution,
			Facts:       table,
		}

		var buf bytes.Buffer
		if err := llmfmt.Write(&buf, doc); err != nil {
			return fail(err)
		}

		llmPath := data.ArtifactPath(ref.Ticker, ref.FilingType, attribution.FiscalYear, attribution.FiscalPeriod, data.ArtifactLLM)
		if err := orchestrator.Sink.Put(ctx, llmPath, buf.Bytes()); err != nil {
			return fail(err)
		}
		outcome.LLMPath = llmPath
	} else if parseErr != nil {
		// Text artifact committed; record the degraded state.
		outcome.Err = parseErr
		outcome.Kind = KindParse
		subLog.Warn().Err(parseErr).Msg("no facts extracted; filing stored text-only")
	}

	if err := orchestrator.recordFiling(ctx, company, outcome); err != nil {
		subLog.Error().Err(err).Str("FilingID", outcome.FilingID).Msg("could not record filing metadata")
	}

	subLog.Info().Str("FilingID", outcome.FilingID).Int("NumFacts", outcome.NumFacts).
		Str("FiscalSource", string(attribution.Source)).Msg("filing processed")

	return outcome
}

// parseFacts tries each detected extraction strategy in order and returns
// the first fact table extracted. A nil table with a nil error means the
// filing is text-only by detection; a nil table with an error means every
// XBRL strategy was tried and refused.
func (orchestrator *Orchestrator) parseFacts(ctx context.Context, docs *data.FilingDocuments, primaryHTML []byte) (*xbrl.FactTable, error) {
	subLog := zerolog.Ctx(ctx)

	var lastErr error
	for _, strategy := range xbrl.DetectFormat(docs, primaryHTML) {
		switch strategy {
		case xbrl.SourceTraditionalXBRL:
			instance, err := orchestrator.Client.Fetch(ctx, docs.InstanceURL)
			if err != nil {
				lastErr = err
				continue
			}
			table, err := xbrl.Parse(bytes.NewReader(instance))
			if err != nil {
				subLog.Warn().Err(err).Msg("traditional instance refused; trying next strategy")
				lastErr = err
				continue
			}
			return table, nil

		case xbrl.SourceInlineXBRL:
			table, err := xbrl.ExtractInline(primaryHTML)
			if err != nil {
				subLog.Warn().Err(err).Msg("inline extraction refused; trying next strategy")
				lastErr = err
				continue
			}
			return table, nil

		case xbrl.SourceTextOnly:
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// alreadyIngested consults the metadata store first and then the sink so a
// re-run over the same window is a cheap no-op.
func (orchestrator *Orchestrator) alreadyIngested(ctx context.Context, outcome *Outcome) (bool, error) {
	if orchestrator.Library != nil {
		exists, err := orchestrator.Library.FilingExists(ctx, outcome.FilingID)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}

	textPath := data.ArtifactPath(outcome.Ticker, outcome.FilingType,
		outcome.Attribution.FiscalYear, outcome.Attribution.FiscalPeriod, data.ArtifactText)
	return orchestrator.Sink.Exists(ctx, textPath)
}

func (orchestrator *Orchestrator) recordFiling(ctx context.Context, company *data.Company, outcome *Outcome) error {
	if orchestrator.Library == nil {
		return nil
	}

	return orchestrator.Library.RecordFiling(ctx, &library.FilingMetadata{
		FilingID:         outcome.FilingID,
		Ticker:           outcome.Ticker,
		CIK:              company.CIK,
		CompanyName:      company.Name,
		FilingType:       string(outcome.FilingType),
		AccessionNumber:  outcome.AccessionNumber,
		FilingDate:       outcome.FilingDate,
		PeriodEndDate:    outcome.PeriodEndDate,
		FiscalYear:       outcome.Attribution.FiscalYear,
		FiscalPeriod:     string(outcome.Attribution.FiscalPeriod),
		FiscalSource:     string(outcome.Attribution.Source),
		FiscalConfidence: outcome.Attribution.Confidence,
		FactSource:       outcome.FactSource.String(),
		NumFacts:         outcome.NumFacts,
		TextPath:         outcome.TextPath,
		LLMPath:          outcome.LLMPath,
	})
}
