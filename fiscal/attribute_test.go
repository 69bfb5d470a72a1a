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
package fiscal_test

import (
	"testing"
	"time"

	"github.com/penny-vault/pvfilings/data"
	"github.com/penny-vault/pvfilings/fiscal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestAttributeRegisteredCompanies(t *testing.T) {
	reg := fiscal.NewRegistry()

	testCases := []struct {
		name       string
		ticker     string
		filingType data.FilingType
		periodEnd  time.Time
		wantYear   int
		wantPeriod data.FiscalPeriod
	}{
		{"msft first quarter", "MSFT", data.Filing10Q, date(2023, time.September, 30), 2024, data.PeriodQ1},
		{"msft annual", "MSFT", data.Filing10K, date(2024, time.June, 30), 2024, data.PeriodAnnual},
		{"nvda first quarter", "NVDA", data.Filing10Q, date(2023, time.April, 30), 2024, data.PeriodQ1},
		{"aapl annual", "AAPL", data.Filing10K, date(2023, time.September, 30), 2023, data.PeriodAnnual},
		{"googl second quarter", "GOOGL", data.Filing10Q, date(2024, time.June, 30), 2024, data.PeriodQ2},
		{"amzn third quarter", "AMZN", data.Filing10Q, date(2024, time.September, 30), 2024, data.PeriodQ3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			attribution := fiscal.Attribute(reg, tc.ticker, tc.filingType, tc.periodEnd, fiscal.Evidence{})
			assert.Equal(t, tc.wantYear, attribution.FiscalYear)
			assert.Equal(t, tc.wantPeriod, attribution.FiscalPeriod)
			assert.Equal(t, fiscal.SourceRegistry, attribution.Source)
			assert.Equal(t, 1.0, attribution.Confidence)
		})
	}
}

func TestAttributeWeekCalendarTolerance(t *testing.T) {
	// 52/53-week calendars can end a few days into the next month
	reg := fiscal.NewRegistry()

	attribution := fiscal.Attribute(reg, "AAPL", data.Filing10K, date(2023, time.October, 1), fiscal.Evidence{})
	assert.Equal(t, 2023, attribution.FiscalYear)
	assert.Equal(t, data.PeriodAnnual, attribution.FiscalPeriod)

	attribution = fiscal.Attribute(reg, "NVDA", data.Filing10Q, date(2023, time.July, 30), fiscal.Evidence{})
	assert.Equal(t, 2024, attribution.FiscalYear)
	assert.Equal(t, data.PeriodQ2, attribution.FiscalPeriod)
}

func TestAttributeEvidence(t *testing.T) {
	evidence := fiscal.Evidence{PeriodFocus: "Q2", YearFocus: "2024"}
	attribution := fiscal.Attribute(nil, "ZZZZ", data.Filing10Q, date(2023, time.December, 31), evidence)

	assert.Equal(t, 2024, attribution.FiscalYear)
	assert.Equal(t, data.PeriodQ2, attribution.FiscalPeriod)
	assert.Equal(t, fiscal.SourceEvidence, attribution.Source)
	assert.Equal(t, 1.0, attribution.Confidence)
}

func TestAttributeEvidenceQ4FoldsIntoAnnual(t *testing.T) {
	evidence := fiscal.Evidence{PeriodFocus: "Q4", YearFocus: "2023"}
	attribution := fiscal.Attribute(nil, "ZZZZ", data.Filing10Q, date(2023, time.December, 31), evidence)

	assert.Equal(t, data.PeriodAnnual, attribution.FiscalPeriod)
	assert.Equal(t, 2023, attribution.FiscalYear)
}

func TestAttributeEvidenceBadYearFallsBack(t *testing.T) {
	evidence := fiscal.Evidence{PeriodFocus: "Q1", YearFocus: "--"}
	attribution := fiscal.Attribute(nil, "ZZZZ", data.Filing10Q, date(2024, time.March, 31), evidence)

	assert.Equal(t, data.PeriodQ1, attribution.FiscalPeriod)
	assert.Equal(t, 2024, attribution.FiscalYear)
	assert.Equal(t, 0.8, attribution.Confidence)
}

func TestAttributeDerivedDefault(t *testing.T) {
	attribution := fiscal.Attribute(nil, "ZZZZ", data.Filing10Q, date(2024, time.March, 31), fiscal.Evidence{})

	assert.Equal(t, 2024, attribution.FiscalYear)
	assert.Equal(t, data.PeriodQ1, attribution.FiscalPeriod)
	assert.Equal(t, fiscal.SourceDerived, attribution.Source)
	assert.Equal(t, 0.6, attribution.Confidence)
}

func TestAttributeAnnualFormOverridesQuarterlyEvidence(t *testing.T) {
	evidence := fiscal.Evidence{PeriodFocus: "Q2", YearFocus: "2023"}
	attribution := fiscal.Attribute(nil, "ZZZZ", data.Filing20F, date(2023, time.March, 31), evidence)

	assert.Equal(t, data.PeriodAnnual, attribution.FiscalPeriod)
}

func TestAttributeNeverQ4(t *testing.T) {
	reg := fiscal.NewRegistry()

	for month := time.January; month <= time.December; month++ {
		for _, ticker := range []string{"AAPL", "MSFT", "NVDA", "GOOGL", "ZZZZ"} {
			for _, filingType := range []data.FilingType{data.Filing10K, data.Filing10Q, data.Filing20F} {
				attribution := fiscal.Attribute(reg, ticker, filingType, date(2024, month, 28), fiscal.Evidence{})
				assert.NotEqual(t, data.FiscalPeriod("Q4"), attribution.FiscalPeriod,
					"ticker=%s type=%s month=%s", ticker, filingType, month)
				assert.True(t, attribution.FiscalPeriod.Valid())
			}
		}
	}
}

func TestRegistryAddAndLookup(t *testing.T) {
	reg := fiscal.NewRegistry()
	require.Equal(t, 5, reg.Len())

	reg.Add("tsla", time.December, 31)
	entry, ok := reg.Lookup("TSLA")
	require.True(t, ok)
	assert.Equal(t, time.December, entry.FYEMonth)

	_, ok = reg.Lookup("unknown")
	assert.False(t, ok)
}
