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
package xbrl

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xmlName(space, local string) xml.Name {
	return xml.Name{Space: space, Local: local}
}

const sampleInstance = `<?xml version="1.0" encoding="utf-8"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance"
    xmlns:us-gaap="http://fasb.org/us-gaap/2023"
    xmlns:dei="http://xbrl.sec.gov/dei/2023"
    xmlns:xbrldi="http://xbrl.org/2006/xbrldi"
    xmlns:iso4217="http://www.xbrl.org/2003/iso4217"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <xbrli:context id="FY2023">
    <xbrli:entity>
      <xbrli:identifier scheme="http://www.sec.gov/CIK">0000320193</xbrli:identifier>
    </xbrli:entity>
    <xbrli:period>
      <xbrli:startDate>2022-10-01</xbrli:startDate>
      <xbrli:endDate>2023-09-30</xbrli:endDate>
    </xbrli:period>
  </xbrli:context>
  <xbrli:context id="FY2023">
    <xbrli:entity>
      <xbrli:identifier scheme="http://www.sec.gov/CIK">0000320193</xbrli:identifier>
    </xbrli:entity>
    <xbrli:period>
      <xbrli:startDate>1999-01-01</xbrli:startDate>
      <xbrli:endDate>1999-12-31</xbrli:endDate>
    </xbrli:period>
  </xbrli:context>
  <xbrli:context id="I2023">
    <xbrli:entity>
      <xbrli:identifier scheme="http://www.sec.gov/CIK">0000320193</xbrli:identifier>
      <xbrli:segment>
        <xbrldi:explicitMember dimension="us-gaap:StatementClassOfStockAxis">us-gaap:CommonStockMember</xbrldi:explicitMember>
      </xbrli:segment>
    </xbrli:entity>
    <xbrli:period>
      <xbrli:instant>2023-09-30</xbrli:instant>
    </xbrli:period>
  </xbrli:context>
  <xbrli:unit id="usd">
    <xbrli:measure>iso4217:USD</xbrli:measure>
  </xbrli:unit>
  <xbrli:unit id="usdPerShare">
    <xbrli:divide>
      <xbrli:unitNumerator><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unitNumerator>
      <xbrli:unitDenominator><xbrli:measure>xbrli:shares</xbrli:measure></xbrli:unitDenominator>
    </xbrli:divide>
  </xbrli:unit>
  <us-gaap:Revenues contextRef="FY2023" unitRef="usd" decimals="-6">383,285,000,000</us-gaap:Revenues>
  <us-gaap:NetIncomeLoss contextRef="FY2023" unitRef="usd" decimals="-6">(14,301)</us-gaap:NetIncomeLoss>
  <us-gaap:Assets contextRef="I2023" unitRef="usd" xsi:nil="true"></us-gaap:Assets>
  <dei:DocumentFiscalPeriodFocus contextRef="FY2023">FY</dei:DocumentFiscalPeriodFocus>
  <us-gaap:Orphan contextRef="MISSING" unitRef="usd">42</us-gaap:Orphan>
</xbrli:xbrl>`

func TestParseInstance(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleInstance))
	require.NoError(t, err)

	assert.Equal(t, SourceTraditionalXBRL, table.Source)

	// duplicate context id keeps the first definition
	require.Len(t, table.ContextOrder, 2)
	duration := table.Contexts["FY2023"]
	require.NotNil(t, duration)
	assert.Equal(t, "2022-10-01", duration.Period.StartDate)
	assert.Equal(t, "2023-09-30", duration.Period.EndDate)
	assert.False(t, duration.Period.IsInstant())
	assert.Equal(t, "0000320193", duration.Entity)

	instant := table.Contexts["I2023"]
	require.NotNil(t, instant)
	assert.True(t, instant.Period.IsInstant())
	assert.Equal(t, "us-gaap:CommonStockMember", instant.Dimensions["us-gaap:StatementClassOfStockAxis"])

	require.Len(t, table.UnitOrder, 2)
	assert.Equal(t, "iso4217:USD", table.Units["usd"].Measure)
	assert.Equal(t, "iso4217:USD", table.Units["usdPerShare"].Numerator)
	assert.Equal(t, "xbrli:shares", table.Units["usdPerShare"].Denominator)

	// the orphan fact referencing an unknown context is dropped
	require.Len(t, table.Facts, 4)

	revenues := table.FactsFor("us-gaap:Revenues")
	require.Len(t, revenues, 1)
	assert.Equal(t, "383,285,000,000", revenues[0].Value)
	require.NotNil(t, revenues[0].Numeric)
	assert.Equal(t, 383285000000.0, *revenues[0].Numeric)
	assert.Equal(t, "-6", revenues[0].Decimals)

	// parenthesized values normalize to negative numbers
	loss := table.FactsFor("us-gaap:NetIncomeLoss")
	require.Len(t, loss, 1)
	require.NotNil(t, loss[0].Numeric)
	assert.Equal(t, -14301.0, *loss[0].Numeric)

	// xsi:nil facts are retained with no value and no normalization
	nilFacts := table.FactsFor("us-gaap:Assets")
	require.Len(t, nilFacts, 1)
	assert.True(t, nilFacts[0].Nil)
	assert.Empty(t, nilFacts[0].Value)
	assert.Nil(t, nilFacts[0].Numeric)

	// facts without a unitRef carry no numeric normalization
	assert.Equal(t, "FY", table.FirstValue("dei:DocumentFiscalPeriodFocus"))
}

func TestParseEmptyDocument(t *testing.T) {
	table, err := Parse(strings.NewReader(`<?xml version="1.0"?><xbrl xmlns="http://www.xbrl.org/2003/instance"></xbrl>`))
	require.NoError(t, err)
	assert.Empty(t, table.Facts)
	assert.Empty(t, table.Contexts)
}

func TestParseNumeric(t *testing.T) {
	testCases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"1,234.5", 1234.5, true},
		{"(500)", -500, true},
		{"0", 0, true},
		{"  42  ", 42, true},
		{"n/a", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		got := parseNumeric(tc.input)
		if !tc.ok {
			assert.Nil(t, got, "input %q", tc.input)
			continue
		}
		require.NotNil(t, got, "input %q", tc.input)
		assert.Equal(t, tc.want, *got, "input %q", tc.input)
	}
}

func TestConceptNameFallbacks(t *testing.T) {
	ns := newNamespaceResolver()

	// declared prefixes win
	ns.prefixes["http://example.com/custom"] = "aapl"
	assert.Equal(t, "aapl:Widgets", ns.conceptName(xmlName("http://example.com/custom", "Widgets")))

	// well-known taxonomy URIs
	assert.Equal(t, "xbrli:context", ns.conceptName(xmlName("http://www.xbrl.org/2003/instance", "context")))

	// heuristics for the standard SEC taxonomies
	assert.Equal(t, "us-gaap:Assets", ns.conceptName(xmlName("http://fasb.org/us-gaap/2024", "Assets")))
	assert.Equal(t, "dei:EntityCentralIndexKey", ns.conceptName(xmlName("http://xbrl.sec.gov/dei/2024", "EntityCentralIndexKey")))

	// verbatim prefix from lenient decoding
	assert.Equal(t, "custom:Thing", ns.conceptName(xmlName("custom", "Thing")))

	// no namespace at all
	assert.Equal(t, "Bare", ns.conceptName(xmlName("", "Bare")))
}

func TestSymbolTable(t *testing.T) {
	symbols := NewSymbolTable()

	id1 := symbols.Intern("us-gaap:Assets")
	id2 := symbols.Intern("us-gaap:Assets")
	id3 := symbols.Intern("us-gaap:Revenues")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, "us-gaap:Assets", symbols.Name(id1))
	assert.Equal(t, 2, symbols.Len())

	_, ok := symbols.Lookup("us-gaap:Missing")
	assert.False(t, ok)
}
