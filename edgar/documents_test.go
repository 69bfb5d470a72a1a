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
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/penny-vault/pvfilings/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndexPage = `<html><body>
<div class="formGrouping">
  <div class="infoHead">Filing Date</div>
  <div class="info">2023-11-03</div>
  <div class="infoHead">Period of Report</div>
  <div class="info">2023-09-30</div>
</div>
<table class="tableFile" summary="Document Format Files">
<tr><th>Seq</th><th>Description</th><th>Document</th><th>Type</th><th>Size</th></tr>
<tr>
  <td>1</td>
  <td>Annual report</td>
  <td><a href="/ix?doc=/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm">aapl-20230930.htm</a></td>
  <td>10-K</td>
  <td>8000000</td>
</tr>
<tr>
  <td>2</td>
  <td>Exhibit 21.1</td>
  <td><a href="/Archives/edgar/data/320193/000032019323000106/exhibit211.htm">exhibit211.htm</a></td>
  <td>EX-21.1</td>
  <td>30000</td>
</tr>
</table>
<table class="tableFile" summary="Data Files">
<tr><th>Seq</th><th>Description</th><th>Document</th><th>Type</th><th>Size</th></tr>
<tr>
  <td>3</td>
  <td>XBRL INSTANCE DOCUMENT</td>
  <td><a href="/Archives/edgar/data/320193/000032019323000106/aapl-20230930_htm.xml">aapl-20230930_htm.xml</a></td>
  <td>XML</td>
  <td>5000000</td>
</tr>
<tr>
  <td>4</td>
  <td>XBRL TAXONOMY EXTENSION SCHEMA</td>
  <td><a href="/Archives/edgar/data/320193/000032019323000106/aapl-20230930.xsd">aapl-20230930.xsd</a></td>
  <td>EX-101.SCH</td>
  <td>120000</td>
</tr>
<tr>
  <td>5</td>
  <td>XBRL CALCULATION LINKBASE</td>
  <td><a href="/Archives/edgar/data/320193/000032019323000106/aapl-20230930_cal.xml">aapl-20230930_cal.xml</a></td>
  <td>EX-101.CAL</td>
  <td>90000</td>
</tr>
</table>
</body></html>`

func parseSampleIndex(t *testing.T) (*goquery.Document, []*indexEntry) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(sampleIndexPage)))
	require.NoError(t, err)
	return doc, parseIndexTables(doc)
}

func TestParseIndexTables(t *testing.T) {
	_, entries := parseSampleIndex(t)
	require.Len(t, entries, 5)

	// viewer links are stripped to the raw archive URL
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm", entries[0].URL)
	assert.Equal(t, "aapl-20230930.htm", entries[0].Filename)
	assert.Equal(t, "10-K", entries[0].Type)
	assert.Equal(t, int64(8000000), entries[0].Size)
}

func TestIndexInfoValue(t *testing.T) {
	doc, _ := parseSampleIndex(t)
	assert.Equal(t, "2023-09-30", indexInfoValue(doc, "Period of Report"))
	assert.Equal(t, "", indexInfoValue(doc, "Accepted"))
}

func TestPickPrimaryDocument(t *testing.T) {
	_, entries := parseSampleIndex(t)

	url := pickPrimaryDocument(entries, data.Filing10K)
	assert.Contains(t, url, "aapl-20230930.htm")
}

func TestPickPrimaryDocumentFallsBackToLargest(t *testing.T) {
	entries := []*indexEntry{
		{Filename: "small.htm", URL: "u1", Type: "GRAPHIC", Size: 100},
		{Filename: "big.htm", URL: "u2", Type: "OTHER", Size: 900},
		{Filename: "exhibit.htm", URL: "u3", Type: "EX-99.1", Size: 5000},
		{Filename: "data.xml", URL: "u4", Type: "XML", Size: 9000},
	}

	assert.Equal(t, "u2", pickPrimaryDocument(entries, data.Filing10Q))
}

func TestPickInstancePrefersInlineExport(t *testing.T) {
	_, entries := parseSampleIndex(t)

	url := pickInstance(entries, "0000320193-23-000106")
	assert.Contains(t, url, "aapl-20230930_htm.xml")
}

func TestPickInstanceSkipsLinkbases(t *testing.T) {
	entries := []*indexEntry{
		{Filename: "aapl_cal.xml", URL: "u1"},
		{Filename: "aapl_lab.xml", URL: "u2"},
		{Filename: "FilingSummary.xml", URL: "u3"},
		{Filename: "aapl-20230930.xml", URL: "u4"},
	}

	assert.Equal(t, "u4", pickInstance(entries, "0000320193-23-000106"))
}

func TestPickInstanceNone(t *testing.T) {
	entries := []*indexEntry{
		{Filename: "report.htm", URL: "u1"},
		{Filename: "aapl_pre.xml", URL: "u2"},
	}

	assert.Equal(t, "", pickInstance(entries, "0000320193-23-000106"))
}

func TestIsLinkbase(t *testing.T) {
	assert.True(t, isLinkbase("aapl-20230930_cal.xml"))
	assert.True(t, isLinkbase("aapl-20230930_lab.xml"))
	assert.False(t, isLinkbase("aapl-20230930_htm.xml"))
	assert.False(t, isLinkbase("aapl-20230930.xsd"))
}
