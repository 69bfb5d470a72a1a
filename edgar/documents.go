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
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/penny-vault/pvfilings/data"
	"github.com/rs/zerolog/log"
)

// indexEntry is one row of an accession index page's document tables.
type indexEntry struct {
	Seq         int
	Description string
	Filename    string
	URL         string
	Type        string
	Size        int64
}

// DiscoverDocuments fetches the accession index page for ref and identifies
// the primary HTML document, the XBRL instance, and schema/linkbase files.
// The period-of-report date is filled in on ref when the index carries one.
func (client *Client) DiscoverDocuments(ctx context.Context, ref *data.FilingRef) (*data.FilingDocuments, error) {
	body, err := client.Fetch(ctx, ref.IndexURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}

	if ref.PeriodEndDate.IsZero() {
		if period := indexInfoValue(doc, "Period of Report"); period != "" {
			if parsed, err := time.Parse("2006-01-02", period); err == nil {
				ref.PeriodEndDate = parsed
			}
		}
	}

	entries := parseIndexTables(doc)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: accession index lists no documents: %s", ErrNotFound, ref.IndexURL)
	}

	docs := &data.FilingDocuments{
		PrimaryDoc:  pickPrimaryDocument(entries, ref.FilingType),
		InstanceURL: pickInstance(entries, ref.AccessionNumber),
	}

	for _, entry := range entries {
		lower := strings.ToLower(entry.Filename)
		switch {
		case strings.HasSuffix(lower, ".xsd"):
			if docs.SchemaURL == "" {
				docs.SchemaURL = entry.URL
			}
		case isLinkbase(lower):
			docs.LinkbaseURLs = append(docs.LinkbaseURLs, entry.URL)
		}
	}

	if docs.PrimaryDoc == "" {
		return nil, fmt.Errorf("%w: no primary document for %s", ErrNotFound, ref.AccessionNumber)
	}

	log.Debug().Str("Accession", ref.AccessionNumber).Str("PrimaryDoc", docs.PrimaryDoc).
		Str("Instance", docs.InstanceURL).Msg("discovered filing documents")

	return docs, nil
}

func indexInfoValue(doc *goquery.Document, label string) string {
	value := ""
	doc.Find("div.formGrouping div.infoHead").EachWithBreak(func(_ int, head *goquery.Selection) bool {
		if strings.TrimSpace(head.Text()) != label {
			return true
		}
		value = strings.TrimSpace(head.NextFiltered("div.info").Text())
		return false
	})
	return value
}

func parseIndexTables(doc *goquery.Document) []*indexEntry {
	entries := make([]*indexEntry, 0, 16)

	doc.Find("table.tableFile tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		link := cells.Eq(2).Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		href = StripViewerURL(href)
		if strings.HasPrefix(href, "/") {
			href = baseURL + href
		}

		seq, _ := strconv.Atoi(strings.TrimSpace(cells.Eq(0).Text()))
		size, _ := strconv.ParseInt(strings.TrimSpace(cells.Eq(4).Text()), 10, 64)

		entries = append(entries, &indexEntry{
			Seq:         seq,
			Description: strings.TrimSpace(cells.Eq(1).Text()),
			Filename:    strings.TrimSpace(link.Text()),
			URL:         href,
			Type:        strings.TrimSpace(cells.Eq(3).Text()),
			Size:        size,
		})
	})

	return entries
}

// pickPrimaryDocument selects the narrative HTML document: the entry whose
// type matches the form type when present, otherwise the largest HTML
// document that is not an exhibit.
func pickPrimaryDocument(entries []*indexEntry, filingType data.FilingType) string {
	var best *indexEntry

	for _, entry := range entries {
		lower := strings.ToLower(entry.Filename)
		if !strings.HasSuffix(lower, ".htm") && !strings.HasSuffix(lower, ".html") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(entry.Type), "EX-") {
			continue
		}

		if entry.Type == string(filingType) {
			return entry.URL
		}

		if best == nil || entry.Size > best.Size {
			best = entry
		}
	}

	if best == nil {
		return ""
	}
	return best.URL
}

// pickInstance selects the XBRL instance document. Inline-era filings name
// it *_htm.xml; older filings use a bare *.xml or *.xbrl that is not a
// calculation/definition/presentation/label linkbase. When several
// candidates remain, the earliest whose filename carries the accession
// number wins.
func pickInstance(entries []*indexEntry, accession string) string {
	for _, entry := range entries {
		if strings.HasSuffix(strings.ToLower(entry.Filename), "_htm.xml") {
			return entry.URL
		}
	}

	candidates := make([]*indexEntry, 0, 4)
	for _, entry := range entries {
		lower := strings.ToLower(entry.Filename)
		if !strings.HasSuffix(lower, ".xml") && !strings.HasSuffix(lower, ".xbrl") {
			continue
		}
		if isLinkbase(lower) || strings.HasSuffix(lower, "filingsummary.xml") {
			continue
		}
		candidates = append(candidates, entry)
	}

	if len(candidates) == 0 {
		return ""
	}

	compact := data.AccessionDirName(accession)
	for _, entry := range candidates {
		if strings.Contains(entry.Filename, accession) || strings.Contains(entry.Filename, compact) {
			return entry.URL
		}
	}

	return candidates[0].URL
}

func isLinkbase(filename string) bool {
	for _, suffix := range []string{"_cal.xml", "_def.xml", "_pre.xml", "_lab.xml"} {
		if strings.HasSuffix(filename, suffix) {
			return true
		}
	}
	return false
}
