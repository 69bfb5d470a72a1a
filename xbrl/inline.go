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
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// ExtractInline reads contexts, units, and facts from an inline-XBRL HTML
// document. Context and unit definitions normally live in a hidden
// ix:header/ix:resources block; when that block is absent (seen in some
// 2022-era filings) the whole document is scanned instead.
func ExtractInline(html []byte) (*FactTable, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}

	table := NewFactTable(SourceInlineXBRL)

	resources := doc.Find(`ix\:header, ix\:resources`).First()
	if resources.Length() == 0 {
		log.Debug().Msg("inline filing has no hidden ix:header block, scanning whole document")
		resources = doc.Selection
	}

	extractInlineContexts(resources, table)
	extractInlineUnits(resources, table)

	// definitions occasionally sit outside the hidden block
	if resources != doc.Selection && len(table.Contexts) == 0 {
		extractInlineContexts(doc.Selection, table)
		extractInlineUnits(doc.Selection, table)
	}

	continuations := collectContinuations(doc)
	extractInlineFacts(doc, table, continuations)

	if len(table.Facts) == 0 && len(table.Contexts) == 0 {
		return nil, fmt.Errorf("%w: document carries no inline XBRL definitions", ErrParse)
	}

	table.dropUnresolvedFacts()
	return table, nil
}

func extractInlineContexts(root *goquery.Selection, table *FactTable) {
	root.Find(`xbrli\:context, context`).Each(func(_ int, sel *goquery.Selection) {
		ctx := &Context{
			ID:         sel.AttrOr("id", ""),
			Entity:     strings.TrimSpace(sel.Find(`xbrli\:identifier, identifier`).First().Text()),
			Dimensions: make(map[string]string),
			Period: Period{
				Instant:   strings.TrimSpace(sel.Find(`xbrli\:instant, instant`).First().Text()),
				StartDate: strings.TrimSpace(sel.Find(`xbrli\:startdate, startdate`).First().Text()),
				EndDate:   strings.TrimSpace(sel.Find(`xbrli\:enddate, enddate`).First().Text()),
			},
		}

		sel.Find(`xbrldi\:explicitmember`).Each(func(_ int, member *goquery.Selection) {
			dimension := member.AttrOr("dimension", "")
			if dimension != "" {
				ctx.Dimensions[dimension] = strings.TrimSpace(member.Text())
			}
		})

		if ctx.ID == "" || !ctx.Period.Valid() {
			log.Warn().Str("ContextID", ctx.ID).Msg("inline context missing id or valid period, discarded")
			return
		}

		table.AddContext(ctx)
	})
}

func extractInlineUnits(root *goquery.Selection, table *FactTable) {
	root.Find(`xbrli\:unit, unit`).Each(func(_ int, sel *goquery.Selection) {
		unit := &Unit{ID: sel.AttrOr("id", "")}
		if unit.ID == "" {
			return
		}

		divide := sel.Find(`xbrli\:divide, divide`)
		if divide.Length() > 0 {
			unit.Numerator = strings.TrimSpace(divide.Find(`xbrli\:unitnumerator, unitnumerator`).Find(`xbrli\:measure, measure`).First().Text())
			unit.Denominator = strings.TrimSpace(divide.Find(`xbrli\:unitdenominator, unitdenominator`).Find(`xbrli\:measure, measure`).First().Text())
		} else {
			unit.Measure = strings.TrimSpace(sel.Find(`xbrli\:measure, measure`).First().Text())
		}

		table.AddUnit(unit)
	})
}

// collectContinuations indexes ix:continuation elements by id so fact text
// split across the document can be chained back together.
func collectContinuations(doc *goquery.Document) map[string]*goquery.Selection {
	continuations := make(map[string]*goquery.Selection)
	doc.Find(`ix\:continuation`).Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok {
			continuations[id] = sel
		}
	})
	return continuations
}

func extractInlineFacts(doc *goquery.Document, table *FactTable, continuations map[string]*goquery.Selection) {
	doc.Find(`ix\:nonnumeric, ix\:nonfraction, ix\:fraction`).Each(func(_ int, sel *goquery.Selection) {
		concept := sel.AttrOr("name", "")
		contextRef := sel.AttrOr("contextref", "")
		if concept == "" || contextRef == "" {
			return
		}

		fact := &Fact{
			Concept:    table.Symbols.Intern(concept),
			ContextRef: contextRef,
			UnitRef:    sel.AttrOr("unitref", ""),
			Decimals:   sel.AttrOr("decimals", ""),
			Nil:        strings.EqualFold(sel.AttrOr("xsi:nil", ""), "true"),
		}

		tag := goquery.NodeName(sel)
		switch tag {
		case "ix:nonfraction":
			raw := strings.TrimSpace(sel.Text())
			fact.Value = raw
			if !fact.Nil {
				fact.Numeric = resolveNonFraction(raw, sel.AttrOr("scale", ""), sel.AttrOr("sign", ""), sel.AttrOr("format", ""))
			}
		case "ix:fraction":
			numerator := strings.TrimSpace(sel.Find(`ix\:numerator`).First().Text())
			denominator := strings.TrimSpace(sel.Find(`ix\:denominator`).First().Text())
			fact.Value = numerator + "/" + denominator
		default: // ix:nonnumeric
			fact.Value = resolveContinuedText(sel, continuations)
		}

		table.AddFact(fact)
	})
}

// resolveContinuedText concatenates a fact's text with its ix:continuation
// chain, following continuedAt links in document order.
func resolveContinuedText(sel *goquery.Selection, continuations map[string]*goquery.Selection) string {
	var text strings.Builder
	text.WriteString(strings.TrimSpace(sel.Text()))

	seen := make(map[string]bool)
	next := sel.AttrOr("continuedat", "")

	for next != "" && !seen[next] {
		seen[next] = true
		cont, ok := continuations[next]
		if !ok {
			log.Warn().Str("ContinuedAt", next).Msg("continuation target not found, truncating fact text")
			break
		}
		text.WriteString(" ")
		text.WriteString(strings.TrimSpace(cont.Text()))
		next = cont.AttrOr("continuedat", "")
	}

	return strings.TrimSpace(text.String())
}

// resolveNonFraction produces the numeric normalization of an ix:nonFraction
// displayed value: the transformation format is applied, then the value is
// shifted by 10^scale and negated when sign="-". The displayed text itself
// is never modified.
func resolveNonFraction(raw, scale, sign, format string) *float64 {
	cleaned := applyTransformFormat(raw, format)
	if cleaned == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}

	if scale != "" {
		if exp, err := strconv.Atoi(scale); err == nil {
			parsed *= math.Pow10(exp)
		}
	}

	if sign == "-" {
		parsed = -parsed
	}

	return &parsed
}

// applyTransformFormat normalizes a displayed number according to its ixt
// transformation registry format. Unknown formats fall back to dot-decimal
// handling, which covers US filings.
func applyTransformFormat(raw, format string) string {
	value := strings.TrimSpace(raw)

	name := format
	if idx := strings.Index(name, ":"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ToLower(strings.ReplaceAll(name, "-", ""))

	switch name {
	case "fixedzero", "zerodash", "numdash":
		return "0"
	case "numcommadecimal":
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	default: // numdotdecimal and friends
		value = strings.ReplaceAll(value, ",", "")
	}

	value = strings.TrimPrefix(value, "$")
	value = strings.TrimSuffix(value, "%")

	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		value = "-" + value[1:len(value)-1]
	}

	return strings.TrimSpace(value)
}
