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

// Package llmfmt writes the LLM-native rendering of a parsed filing: a
// line-oriented text file with a context dictionary, a unit dictionary, and
// every XBRL fact joined to its context and unit. The output is a pure
// function of the parsed state, so re-serializing identical inputs yields
// byte-identical artifacts.
package llmfmt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pvfilings/data"
	"github.com/penny-vault/pvfilings/fiscal"
	"github.com/penny-vault/pvfilings/xbrl"
)

// ErrSerialize indicates the serializer produced no usable output.
var ErrSerialize = errors.New("llm serialization failed")

// Document bundles everything the serializer needs for one filing.
type Document struct {
	Company     data.Company
	FilingType  data.FilingType
	FilingDate  time.Time
	PeriodEnd   time.Time
	Attribution fiscal.Attribution
	Facts       *xbrl.FactTable
}

// Write renders the document. Section order: header, context dictionary,
// unit dictionary, facts grouped by concept (alphabetical) and sorted by
// context period end ascending. Values are emitted exactly as reported;
// the numeric normalization appears on a parallel @NORMALIZED line.
func Write(w io.Writer, doc *Document) error {
	if doc == nil || doc.Facts == nil {
		return fmt.Errorf("%w: no parsed state", ErrSerialize)
	}

	buf := bufio.NewWriter(w)

	writeHeader(buf, doc)
	writeContexts(buf, doc.Facts)
	writeUnits(buf, doc.Facts)
	writeFacts(buf, doc.Facts)

	return buf.Flush()
}

func writeHeader(buf *bufio.Writer, doc *Document) {
	fmt.Fprintf(buf, "@DOCUMENT: %s-%s-%s\n", doc.Company.Ticker, doc.FilingType, doc.PeriodEnd.Format("2006-01-02"))
	fmt.Fprintf(buf, "@FILING_DATE: %s\n", doc.FilingDate.Format("2006-01-02"))
	fmt.Fprintf(buf, "@COMPANY: %s\n", doc.Company.Name)
	fmt.Fprintf(buf, "@CIK: %s\n", doc.Company.CIK)
	fmt.Fprintf(buf, "@FISCAL_YEAR: %d\n", doc.Attribution.FiscalYear)
	fmt.Fprintf(buf, "@FISCAL_PERIOD: %s\n", doc.Attribution.FiscalPeriod)
	fmt.Fprintln(buf)
}

// ContextLabel renders the human-readable label for a context: its period
// followed by one "Segment" clause per dimension member.
func ContextLabel(ctx *xbrl.Context) string {
	var label string
	if ctx.Period.IsInstant() {
		label = fmt.Sprintf("Instant: %s", ctx.Period.Instant)
	} else {
		label = fmt.Sprintf("Period: %s to %s", ctx.Period.StartDate, ctx.Period.EndDate)
	}

	if len(ctx.Dimensions) == 0 {
		return label
	}

	dims := make([]string, 0, len(ctx.Dimensions))
	for dim := range ctx.Dimensions {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		label += fmt.Sprintf(" | Segment: %s", ctx.Dimensions[dim])
	}
	return label
}

func writeContexts(buf *bufio.Writer, table *xbrl.FactTable) {
	fmt.Fprintln(buf, "@DATA_DICTIONARY: CONTEXTS")
	for _, id := range table.ContextOrder {
		fmt.Fprintf(buf, "@CONTEXT_DEF: %s | %s\n", id, ContextLabel(table.Contexts[id]))
	}
	fmt.Fprintln(buf)
}

func writeUnits(buf *bufio.Writer, table *xbrl.FactTable) {
	fmt.Fprintln(buf, "@DATA_DICTIONARY: UNITS")
	for _, id := range table.UnitOrder {
		fmt.Fprintf(buf, "@UNIT_DEF: %s | %s\n", id, table.Units[id].Expression())
	}
	fmt.Fprintln(buf)
}

func writeFacts(buf *bufio.Writer, table *xbrl.FactTable) {
	fmt.Fprintln(buf, "@FACTS")
	fmt.Fprintln(buf)

	facts := make([]*xbrl.Fact, len(table.Facts))
	copy(facts, table.Facts)

	periodEnd := func(fact *xbrl.Fact) time.Time {
		if ctx, ok := table.Contexts[fact.ContextRef]; ok {
			return ctx.Period.EndTime()
		}
		return time.Time{}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		nameI, nameJ := table.ConceptName(facts[i]), table.ConceptName(facts[j])
		if nameI != nameJ {
			return nameI < nameJ
		}
		endI, endJ := periodEnd(facts[i]), periodEnd(facts[j])
		if !endI.Equal(endJ) {
			return endI.Before(endJ)
		}
		return facts[i].ContextRef < facts[j].ContextRef
	})

	for _, fact := range facts {
		fmt.Fprintf(buf, "@CONCEPT: %s\n", table.ConceptName(fact))
		fmt.Fprintf(buf, "@VALUE: %s\n", fact.Value)
		if fact.Numeric != nil {
			fmt.Fprintf(buf, "@NORMALIZED: %s\n", strconv.FormatFloat(*fact.Numeric, 'f', -1, 64))
		}
		if fact.UnitRef != "" {
			fmt.Fprintf(buf, "@UNIT_REF: %s\n", fact.UnitRef)
		}
		if fact.Decimals != "" {
			fmt.Fprintf(buf, "@DECIMALS: %s\n", fact.Decimals)
		}
		fmt.Fprintf(buf, "@CONTEXT_REF: %s\n", fact.ContextRef)
		fmt.Fprintln(buf)
	}
}

// FactRecord is one fact read back out of a serialized file. Used to
// verify completeness of written artifacts.
type FactRecord struct {
	Concept    string
	Value      string
	Normalized string
	UnitRef    string
	Decimals   string
	ContextRef string
}

// ParseFacts reads the @FACTS section of a serialized document back into
// fact records. The round trip through Write then ParseFacts preserves
// every concept/value/context/unit tuple.
func ParseFacts(r io.Reader) ([]FactRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	records := make([]FactRecord, 0, 256)
	inFacts := false
	var current *FactRecord

	flush := func() {
		if current != nil {
			records = append(records, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		if !inFacts {
			if strings.TrimSpace(line) == "@FACTS" {
				inFacts = true
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "@CONCEPT: "):
			flush()
			current = &FactRecord{Concept: strings.TrimPrefix(line, "@CONCEPT: ")}
		case current == nil:
			// stray line between records
		case strings.HasPrefix(line, "@VALUE: "):
			current.Value = strings.TrimPrefix(line, "@VALUE: ")
		case strings.HasPrefix(line, "@NORMALIZED: "):
			current.Normalized = strings.TrimPrefix(line, "@NORMALIZED: ")
		case strings.HasPrefix(line, "@UNIT_REF: "):
			current.UnitRef = strings.TrimPrefix(line, "@UNIT_REF: ")
		case strings.HasPrefix(line, "@DECIMALS: "):
			current.Decimals = strings.TrimPrefix(line, "@DECIMALS: ")
		case strings.HasPrefix(line, "@CONTEXT_REF: "):
			current.ContextRef = strings.TrimPrefix(line, "@CONTEXT_REF: ")
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
