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
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	json "github.com/goccy/go-json"
	"github.com/penny-vault/pvfilings/data"
	"github.com/rs/zerolog/log"
)

const (
	companyTickersPath = "/files/company_tickers.json"
	browseEdgarPath    = "/cgi-bin/browse-edgar"

	filingsPageSize = 40
)

var (
	accessionInTextRe = regexp.MustCompile(`\d{10}-\d{2}-\d{6}`)
	cikInLinkRe       = regexp.MustCompile(`CIK=(\d{10})`)
)

type companyTickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ResolveCIK maps a ticker symbol to its zero-padded 10-digit CIK. Results
// are cached process-wide; the cache is shared safely across workers.
func (client *Client) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	ticker = data.NormalizeTicker(ticker)

	if cik, ok := client.cikCache.Get(ticker); ok {
		return cik, nil
	}

	cik, err := client.resolveFromTickerFile(ctx, ticker)
	if err != nil {
		log.Debug().Err(err).Str("Ticker", ticker).Msg("company_tickers.json lookup failed, falling back to company search")
		cik, err = client.resolveFromCompanySearch(ctx, ticker)
	}
	if err != nil {
		return "", err
	}

	client.cikCache.Set(ticker, cik)
	return cik, nil
}

// ResolveCompany returns the ticker's CIK and registrant name.
func (client *Client) ResolveCompany(ctx context.Context, ticker string) (*data.Company, error) {
	ticker = data.NormalizeTicker(ticker)

	cik, err := client.ResolveCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	company := &data.Company{Ticker: ticker, CIK: cik}

	if name, ok := client.cikCache.Get("name:" + ticker); ok {
		company.Name = name
	}

	return company, nil
}

func (client *Client) resolveFromTickerFile(ctx context.Context, ticker string) (string, error) {
	body, err := client.Fetch(ctx, client.baseURL+companyTickersPath)
	if err != nil {
		return "", err
	}

	entries := make(map[string]companyTickerEntry)
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("%w: decode company_tickers.json: %s", ErrFetch, err.Error())
	}

	for _, entry := range entries {
		if data.NormalizeTicker(entry.Ticker) == ticker {
			client.cikCache.Set("name:"+ticker, entry.Title)
			return data.PadCIK(strconv.Itoa(entry.CIK)), nil
		}
	}

	return "", fmt.Errorf("%w: no CIK for ticker %s", ErrNotFound, ticker)
}

func (client *Client) resolveFromCompanySearch(ctx context.Context, ticker string) (string, error) {
	url := fmt.Sprintf("%s%s?action=getcompany&CIK=%s&type=10-K&dateb=&owner=exclude&count=%d",
		client.baseURL, browseEdgarPath, ticker, filingsPageSize)

	body, err := client.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	match := cikInLinkRe.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("%w: no CIK for ticker %s", ErrNotFound, ticker)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if name := strings.TrimSpace(doc.Find("span.companyName").First().Text()); name != "" {
			// strip the trailing "CIK#: ..." annotation EDGAR appends
			if idx := strings.Index(name, "CIK#"); idx > 0 {
				name = strings.TrimSpace(name[:idx])
			}
			client.cikCache.Set("name:"+ticker, name)
		}
	}

	return string(match[1]), nil
}

// ListFilings pages the EDGAR filings index for cik and returns refs for the
// requested form types, sorted by filing date descending. Years bound the
// filing date inclusively; zero means unbounded. When a 10-K request yields
// nothing the locator retries with 20-F and marks the substitution on each
// returned ref.
func (client *Client) ListFilings(ctx context.Context, ticker, cik string, filingTypes []data.FilingType, startYear, endYear int) ([]*data.FilingRef, error) {
	refs := make([]*data.FilingRef, 0)

	for _, filingType := range filingTypes {
		typeRefs, err := client.listFilingsOfType(ctx, ticker, cik, filingType)
		if err != nil {
			return nil, err
		}

		// foreign private issuers file 20-F instead of 10-K
		if len(typeRefs) == 0 && filingType == data.Filing10K {
			log.Info().Str("Ticker", ticker).Msg("no 10-K filings found, retrying as 20-F")
			typeRefs, err = client.listFilingsOfType(ctx, ticker, cik, data.Filing20F)
			if err != nil {
				return nil, err
			}
			for _, ref := range typeRefs {
				ref.RequestedType = data.Filing10K
			}
		}

		refs = append(refs, typeRefs...)
	}

	filtered := refs[:0]
	for _, ref := range refs {
		year := ref.FilingDate.Year()
		if startYear > 0 && year < startYear {
			continue
		}
		if endYear > 0 && year > endYear {
			continue
		}
		filtered = append(filtered, ref)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].FilingDate.After(filtered[j].FilingDate)
	})

	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no filings for %s", ErrNotFound, ticker)
	}

	return filtered, nil
}

func (client *Client) listFilingsOfType(ctx context.Context, ticker, cik string, filingType data.FilingType) ([]*data.FilingRef, error) {
	refs := make([]*data.FilingRef, 0)

	for start := 0; ; start += filingsPageSize {
		url := fmt.Sprintf("%s%s?action=getcompany&CIK=%s&type=%s&dateb=&owner=exclude&count=%d&start=%d",
			client.baseURL, browseEdgarPath, cik, filingType, filingsPageSize, start)

		body, err := client.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		page, rows, err := parseFilingsPage(body, ticker, cik, filingType)
		if err != nil {
			return nil, err
		}

		refs = append(refs, page...)

		// a browse page can come back short after filtering out amendment
		// rows, so pagination follows the raw row count, not the kept refs
		if rows < filingsPageSize {
			break
		}
	}

	return refs, nil
}

// parseFilingsPage reads the browse-edgar results table and returns the refs
// matching filingType plus the raw number of filing rows on the page. Rows
// are: type, format links, description (carrying the accession number),
// filing date, file/film number.
func parseFilingsPage(body []byte, ticker, cik string, filingType data.FilingType) ([]*data.FilingRef, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}

	refs := make([]*data.FilingRef, 0, filingsPageSize)
	rows := 0

	doc.Find("table.tableFile2 tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		rows++

		rowType := strings.TrimSpace(cells.Eq(0).Text())
		if rowType != string(filingType) {
			return
		}

		accession := accessionInTextRe.FindString(cells.Eq(2).Text())
		if accession == "" || !data.ValidAccession(accession) {
			return
		}

		filingDate, err := time.Parse("2006-01-02", strings.TrimSpace(cells.Eq(3).Text()))
		if err != nil {
			log.Warn().Str("Ticker", ticker).Str("Accession", accession).Msg("filing row has unparseable date, skipping")
			return
		}

		indexURL, _ := cells.Eq(1).Find("a#documentsbutton").Attr("href")
		if indexURL == "" {
			indexURL, _ = cells.Eq(1).Find("a").First().Attr("href")
		}
		if strings.HasPrefix(indexURL, "/") {
			indexURL = baseURL + indexURL
		}

		refs = append(refs, &data.FilingRef{
			Ticker:          ticker,
			CIK:             cik,
			FilingType:      filingType,
			AccessionNumber: accession,
			FilingDate:      filingDate,
			IndexURL:        indexURL,
		})
	})

	return refs, rows, nil
}
