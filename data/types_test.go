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
package data_test

import (
	"testing"

	"github.com/penny-vault/pvfilings/data"
	"github.com/stretchr/testify/assert"
)

func TestFilingTypeIsAnnual(t *testing.T) {
	assert.True(t, data.Filing10K.IsAnnual())
	assert.True(t, data.Filing20F.IsAnnual())
	assert.False(t, data.Filing10Q.IsAnnual())
}

func TestFiscalPeriodValid(t *testing.T) {
	assert.True(t, data.PeriodQ1.Valid())
	assert.True(t, data.PeriodAnnual.Valid())
	assert.False(t, data.FiscalPeriod("Q4").Valid())
	assert.False(t, data.FiscalPeriod("").Valid())
}

func TestValidAccession(t *testing.T) {
	assert.True(t, data.ValidAccession("0000320193-23-000106"))
	assert.False(t, data.ValidAccession("0000320193-23-00010"))
	assert.False(t, data.ValidAccession("000032019323000106"))
	assert.False(t, data.ValidAccession("accession"))
}

func TestPadAndStripCIK(t *testing.T) {
	assert.Equal(t, "0000320193", data.PadCIK("320193"))
	assert.Equal(t, "0000320193", data.PadCIK("0000320193"))
	assert.Equal(t, "320193", data.StripCIK("0000320193"))
	assert.Equal(t, "0", data.StripCIK("0000000000"))
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", data.NormalizeTicker(" aapl "))
	assert.Equal(t, "BRK.B", data.NormalizeTicker("brk.b"))
}

func TestAccessionDirName(t *testing.T) {
	assert.Equal(t, "000032019323000106", data.AccessionDirName("0000320193-23-000106"))
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, "companies/AAPL/10-K/2023/annual/text.txt",
		data.ArtifactPath("aapl", data.Filing10K, 2023, data.PeriodAnnual, data.ArtifactText))
	assert.Equal(t, "companies/MSFT/10-Q/2024/Q1/llm.txt",
		data.ArtifactPath("MSFT", data.Filing10Q, 2024, data.PeriodQ1, data.ArtifactLLM))
}

func TestFilingID(t *testing.T) {
	assert.Equal(t, "NVDA-10-Q-2024-Q1", data.FilingID("nvda", data.Filing10Q, 2024, data.PeriodQ1))
}

func TestSubstituted(t *testing.T) {
	ref := &data.FilingRef{FilingType: data.Filing20F, RequestedType: data.Filing10K}
	assert.True(t, ref.Substituted())

	ref = &data.FilingRef{FilingType: data.Filing10K}
	assert.False(t, ref.Substituted())
}
