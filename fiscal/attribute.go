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
package fiscal

import (
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pvfilings/data"
	"github.com/penny-vault/pvfilings/xbrl"
	"github.com/rs/zerolog/log"
)

// Source records how an attribution was determined.
type Source string

const (
	SourceRegistry Source = "registry"
	SourceEvidence Source = "filing-evidence"
	SourceDerived  Source = "derived"
)

// Attribution is the fiscal placement of one filing. FiscalPeriod is never
// Q4: the fourth quarter is always reported inside an annual filing.
type Attribution struct {
	FiscalYear   int
	FiscalPeriod data.FiscalPeriod
	Source       Source
	Confidence   float64
}

// Evidence carries the dei facts a filing reports about its own fiscal
// placement.
type Evidence struct {
	PeriodFocus string // dei:DocumentFiscalPeriodFocus, e.g. "Q1" or "FY"
	YearFocus   string // dei:DocumentFiscalYearFocus, e.g. "2024"
}

// EvidenceFromFacts pulls the dei fiscal-focus facts out of a parsed fact
// table.
func EvidenceFromFacts(table *xbrl.FactTable) Evidence {
	if table == nil {
		return Evidence{}
	}
	return Evidence{
		PeriodFocus: table.FirstValue("dei:DocumentFiscalPeriodFocus"),
		YearFocus:   table.FirstValue("dei:DocumentFiscalYearFocus"),
	}
}

// Attribute determines (fiscal year, fiscal period) for a filing. Registered
// calendars win; otherwise dei evidence from the filing; otherwise a
// December fiscal-year-end heuristic. Annual form types force the annual
// period regardless of other signals.
func Attribute(reg *Registry, ticker string, filingType data.FilingType, periodEnd time.Time, evidence Evidence) Attribution {
	var attribution Attribution

	switch {
	case hasRegistryEntry(reg, ticker):
		entry, _ := reg.Lookup(ticker)
		attribution = classify(entry.FYEMonth, periodEnd)
		attribution.Source = SourceRegistry
		attribution.Confidence = 1.0
	case evidence.PeriodFocus != "":
		attribution = fromEvidence(evidence, periodEnd)
	default:
		attribution = classify(time.December, periodEnd)
		attribution.Source = SourceDerived
		attribution.Confidence = 0.6
	}

	// 10-K and 20-F always cover a full fiscal year
	if filingType.IsAnnual() && attribution.FiscalPeriod != data.PeriodAnnual {
		log.Info().Str("Ticker", ticker).Str("FilingType", string(filingType)).
			Str("Evidence", string(attribution.FiscalPeriod)).
			Msg("overriding quarterly evidence for annual filing type")
		attribution.FiscalPeriod = data.PeriodAnnual
	}

	return attribution
}

func hasRegistryEntry(reg *Registry, ticker string) bool {
	if reg == nil {
		return false
	}
	_, ok := reg.Lookup(ticker)
	return ok
}

// classify buckets a period-end date by its month offset from the fiscal
// year end: FYE month is annual, FYE+3 is Q1, FYE+6 Q2, FYE+9 Q3, with one
// month of tolerance either side for 52/53-week calendars. The fiscal year
// is the calendar year in which the fiscal year ends.
func classify(fyeMonth time.Month, periodEnd time.Time) Attribution {
	offset := (int(periodEnd.Month()) - int(fyeMonth) + 12) % 12

	// snap to the nearest bucket center {0, 3, 6, 9}
	center := ((offset + 1) / 3 * 3) % 12
	delta := offset - center
	if delta > 1 {
		// offset 11 wraps to the annual bucket of the following cycle
		delta -= 12
	}

	var period data.FiscalPeriod
	switch center {
	case 3:
		period = data.PeriodQ1
	case 6:
		period = data.PeriodQ2
	case 9:
		period = data.PeriodQ3
	default:
		// the fourth fiscal quarter is reported in the annual filing
		period = data.PeriodAnnual
	}

	monthsToFYEnd := (12 - center) % 12
	fyEnd := time.Date(periodEnd.Year(), periodEnd.Month()+time.Month(monthsToFYEnd-delta), 1, 0, 0, 0, 0, time.UTC)

	return Attribution{
		FiscalYear:   fyEnd.Year(),
		FiscalPeriod: period,
	}
}

// fromEvidence trusts the filing's own dei fiscal-focus facts.
func fromEvidence(evidence Evidence, periodEnd time.Time) Attribution {
	attribution := Attribution{
		Source:     SourceEvidence,
		Confidence: 1.0,
	}

	switch strings.ToUpper(strings.TrimSpace(evidence.PeriodFocus)) {
	case "Q1":
		attribution.FiscalPeriod = data.PeriodQ1
	case "Q2":
		attribution.FiscalPeriod = data.PeriodQ2
	case "Q3":
		attribution.FiscalPeriod = data.PeriodQ3
	case "Q4":
		// never Q4; the period is folded into the annual report
		log.Info().Str("PeriodFocus", evidence.PeriodFocus).Msg("Q4 period focus folded into annual")
		attribution.FiscalPeriod = data.PeriodAnnual
	default: // "FY" and unrecognized values
		attribution.FiscalPeriod = data.PeriodAnnual
	}

	if year, err := strconv.Atoi(strings.TrimSpace(evidence.YearFocus)); err == nil && year > 1900 {
		attribution.FiscalYear = year
	} else {
		fallback := classify(time.December, periodEnd)
		attribution.FiscalYear = fallback.FiscalYear
		attribution.Confidence = 0.8
	}

	return attribution
}
