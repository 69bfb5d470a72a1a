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
package data

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type FilingType string

const (
	Filing10K FilingType = "10-K"
	Filing10Q FilingType = "10-Q"
	Filing20F FilingType = "20-F"
)

// IsAnnual reports whether the form type always covers a full fiscal year.
func (ft FilingType) IsAnnual() bool {
	return ft == Filing10K || ft == Filing20F
}

type FiscalPeriod string

const (
	PeriodQ1     FiscalPeriod = "Q1"
	PeriodQ2     FiscalPeriod = "Q2"
	PeriodQ3     FiscalPeriod = "Q3"
	PeriodAnnual FiscalPeriod = "annual"
)

func (p FiscalPeriod) Valid() bool {
	switch p {
	case PeriodQ1, PeriodQ2, PeriodQ3, PeriodAnnual:
		return true
	}
	return false
}

// Company identifies an SEC registrant. Ticker is the unique key; CIK is
// zero-padded to 10 digits as EDGAR expects.
type Company struct {
	Ticker string
	CIK    string
	Name   string
}

var accessionRe = regexp.MustCompile(`^\d{10}-\d{2}-\d{6}$`)

// FilingRef identifies one EDGAR submission before its documents have been
// discovered.
type FilingRef struct {
	Ticker          string
	CIK             string
	FilingType      FilingType
	AccessionNumber string
	FilingDate      time.Time
	PeriodEndDate   time.Time
	IndexURL        string

	// RequestedType is set when the locator substituted a different form
	// type for the one originally requested (10-K -> 20-F for foreign
	// issuers).
	RequestedType FilingType
}

// Substituted reports whether the locator swapped the requested form type.
func (ref *FilingRef) Substituted() bool {
	return ref.RequestedType != "" && ref.RequestedType != ref.FilingType
}

// ValidAccession reports whether s matches EDGAR's dash-formatted
// accession number layout NNNNNNNNNN-NN-NNNNNN.
func ValidAccession(s string) bool {
	return accessionRe.MatchString(s)
}

// FilingDocuments holds the URLs discovered from an accession index page.
type FilingDocuments struct {
	PrimaryDoc   string
	InstanceURL  string
	SchemaURL    string
	LinkbaseURLs []string
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// PadCIK left-pads a CIK with zeros to the canonical 10 digits.
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}

// StripCIK removes leading zeros; EDGAR archive paths use the short form.
func StripCIK(cik string) string {
	stripped := strings.TrimLeft(cik, "0")
	if stripped == "" {
		return "0"
	}
	return stripped
}

// AccessionDirName removes the dashes from an accession number; archive
// directories use the compact form.
func AccessionDirName(accession string) string {
	return strings.ReplaceAll(accession, "-", "")
}

type ArtifactKind string

const (
	ArtifactText ArtifactKind = "text"
	ArtifactLLM  ArtifactKind = "llm"
)

// ArtifactPath returns the canonical sink path for a filing artifact:
// companies/{TICKER}/{FILING_TYPE}/{YYYY}/{PERIOD}/{text|llm}.txt
func ArtifactPath(ticker string, filingType FilingType, fiscalYear int, period FiscalPeriod, kind ArtifactKind) string {
	return fmt.Sprintf("companies/%s/%s/%d/%s/%s.txt",
		NormalizeTicker(ticker), filingType, fiscalYear, period, kind)
}

// FilingID is the metadata-store key for a processed filing.
func FilingID(ticker string, filingType FilingType, fiscalYear int, period FiscalPeriod) string {
	return fmt.Sprintf("%s-%s-%d-%s", NormalizeTicker(ticker), filingType, fiscalYear, period)
}
