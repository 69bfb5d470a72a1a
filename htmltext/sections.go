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
package htmltext

import (
	"regexp"
	"strings"

	"github.com/penny-vault/pvfilings/data"
)

// SectionSentinel prefixes the canonical section marker lines emitted into
// the text rendering.
const SectionSentinel = "@SECTION: "

var (
	partRe = regexp.MustCompile(`(?i)^part\s+(i{1,3}|iv)\b`)
	itemRe = regexp.MustCompile(`(?i)^item\s+(\d+A?)\b`)
	mdaRe  = regexp.MustCompile(`(?i)^management.s\s+discussion\s+and\s+analysis`)
	riskRe = regexp.MustCompile(`(?i)^risk\s+factors\b`)

	// table-of-contents rows end in a page number after table flattening
	pageNumberRe = regexp.MustCompile(`\d+\s*$`)
)

// annualItems maps item numbers to canonical section names for 10-K and
// 20-F filings.
var annualItems = map[string]string{
	"1":  "ITEM_1_BUSINESS",
	"1A": "ITEM_1A_RISK_FACTORS",
	"2":  "ITEM_2_PROPERTIES",
	"3":  "ITEM_3_LEGAL_PROCEEDINGS",
	"7":  "ITEM_7_MD_AND_A",
	"7A": "ITEM_7A_MARKET_RISK",
	"8":  "ITEM_8_FINANCIAL_STATEMENTS",
}

// quarterlyItems is the 10-Q vocabulary; item numbering differs from the
// annual forms.
var quarterlyItems = map[string]string{
	"1":  "ITEM_1_FINANCIAL_STATEMENTS",
	"1A": "ITEM_1A_RISK_FACTORS",
	"2":  "ITEM_2_MD_AND_A",
	"3":  "ITEM_3_MARKET_RISK",
	"4":  "ITEM_4_CONTROLS",
}

// maxHeadingLen guards against tagging body sentences that merely start
// with "Item".
const maxHeadingLen = 120

// tagSections sweeps the rendered text for SEC item headings and inserts a
// sentinel line before the first occurrence of each canonical section.
func tagSections(text string, filingType data.FilingType, cellDelimiter string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+16)
	tagged := make(map[string]bool)

	for _, line := range lines {
		if name := classifyHeading(line, filingType, cellDelimiter); name != "" && !tagged[name] {
			out = append(out, SectionSentinel+name)
			tagged[name] = true
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// classifyHeading returns the canonical section name for a heading line, or
// "" when the line is not a section heading.
func classifyHeading(line string, filingType data.FilingType, cellDelimiter string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > maxHeadingLen {
		return ""
	}

	// rows that survived table flattening with a trailing page number are
	// table-of-contents entries, not headings
	if strings.Contains(trimmed, cellDelimiter) && pageNumberRe.MatchString(trimmed) {
		return ""
	}

	if match := partRe.FindStringSubmatch(trimmed); match != nil {
		return "PART_" + strings.ToUpper(match[1])
	}

	if match := itemRe.FindStringSubmatch(trimmed); match != nil {
		item := strings.ToUpper(match[1])
		if filingType == data.Filing10Q {
			return quarterlyItems[item]
		}
		return annualItems[item]
	}

	if mdaRe.MatchString(trimmed) {
		return "MANAGEMENT_DISCUSSION"
	}

	if riskRe.MatchString(trimmed) {
		return "ITEM_1A_RISK_FACTORS"
	}

	return ""
}
