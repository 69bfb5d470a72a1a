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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// Parse reads a traditional XBRL instance document. Parsing is lenient:
// unknown entities and undeclared prefixes do not halt the walk, and a
// decode error after usable content has been seen truncates rather than
// fails.
func Parse(r io.Reader) (*FactTable, error) {
	table := NewFactTable(SourceTraditionalXBRL)

	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = xml.HTMLEntity

	ns := newNamespaceResolver()

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(table.Facts) == 0 && len(table.Contexts) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrParse, err.Error())
			}
			log.Warn().Err(err).Msg("xbrl decode error after partial parse, truncating")
			break
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		ns.observe(start)

		switch strings.ToLower(start.Name.Local) {
		case "context":
			ctx, err := parseContext(decoder, start)
			if err != nil {
				log.Warn().Err(err).Msg("skipping malformed context")
				continue
			}
			if !ctx.Period.Valid() {
				log.Warn().Str("ContextID", ctx.ID).Msg("context period is neither instant nor duration, discarded")
				continue
			}
			table.AddContext(ctx)
		case "unit":
			unit, err := parseUnit(decoder, start)
			if err != nil {
				log.Warn().Err(err).Msg("skipping malformed unit")
				continue
			}
			table.AddUnit(unit)
		case "schemaref", "linkbaseref", "roleref", "arcroleref":
			// taxonomy references carry no facts
		default:
			contextRef := findAttr(start, "contextRef")
			if contextRef == "" {
				continue
			}
			fact, err := parseFact(decoder, start, ns, table.Symbols)
			if err != nil {
				log.Warn().Err(err).Str("Concept", start.Name.Local).Msg("skipping malformed fact")
				continue
			}
			table.AddFact(fact)
		}
	}

	table.dropUnresolvedFacts()
	return table, nil
}

// dropUnresolvedFacts removes facts whose contextRef does not resolve to a
// parsed context. Every retained fact satisfies the referential invariant.
func (table *FactTable) dropUnresolvedFacts() {
	kept := table.Facts[:0]
	for _, fact := range table.Facts {
		if _, ok := table.Contexts[fact.ContextRef]; !ok {
			log.Warn().Str("ContextRef", fact.ContextRef).Str("Concept", table.ConceptName(fact)).
				Msg("fact references unknown context, discarded")
			continue
		}
		kept = append(kept, fact)
	}
	table.Facts = kept
}

func parseContext(decoder *xml.Decoder, start xml.StartElement) (*Context, error) {
	ctx := &Context{
		ID:         findAttr(start, "id"),
		Dimensions: make(map[string]string),
	}

	var (
		current   string
		dimension string
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
			if current == "explicitmember" {
				dimension = findAttr(t, "dimension")
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch current {
			case "identifier":
				ctx.Entity = text
			case "instant":
				ctx.Period.Instant = text
			case "startdate":
				ctx.Period.StartDate = text
			case "enddate":
				ctx.Period.EndDate = text
			case "explicitmember":
				if dimension != "" {
					ctx.Dimensions[dimension] = text
				}
			}
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, "context") {
				return ctx, nil
			}
			current = ""
		}
	}
}

func parseUnit(decoder *xml.Decoder, start xml.StartElement) (*Unit, error) {
	unit := &Unit{ID: findAttr(start, "id")}

	var (
		inMeasure     bool
		inNumerator   bool
		inDenominator bool
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "measure":
				inMeasure = true
			case "unitnumerator":
				inNumerator = true
			case "unitdenominator":
				inDenominator = true
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" || !inMeasure {
				continue
			}
			switch {
			case inNumerator:
				unit.Numerator = text
			case inDenominator:
				unit.Denominator = text
			default:
				unit.Measure = text
			}
		case xml.EndElement:
			switch strings.ToLower(t.Name.Local) {
			case "measure":
				inMeasure = false
			case "unitnumerator":
				inNumerator = false
			case "unitdenominator":
				inDenominator = false
			case "unit":
				return unit, nil
			}
		}
	}
}

// parseFact consumes the element start points at, concatenating character
// data from any nested markup. An xsi:nil="true" fact is retained with an
// empty value.
func parseFact(decoder *xml.Decoder, start xml.StartElement, ns *namespaceResolver, symbols *SymbolTable) (*Fact, error) {
	fact := &Fact{
		Concept:    symbols.Intern(ns.conceptName(start.Name)),
		ContextRef: findAttr(start, "contextRef"),
		UnitRef:    findAttr(start, "unitRef"),
		Decimals:   findAttr(start, "decimals"),
		Precision:  findAttr(start, "precision"),
		Nil:        strings.EqualFold(findAttr(start, "nil"), "true"),
	}

	var text strings.Builder
	depth := 1

	for depth > 0 {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			text.Write(t)
		}
	}

	fact.Value = strings.TrimSpace(text.String())
	if fact.UnitRef != "" && !fact.Nil {
		fact.Numeric = parseNumeric(fact.Value)
	}

	return fact, nil
}

// parseNumeric produces the numeric normalization for a reported value.
// Returns nil when the text is not a number.
func parseNumeric(value string) *float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return nil
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	if negative {
		parsed = -parsed
	}
	return &parsed
}

// findAttr returns an attribute by local name, case-insensitively; XBRL
// attribute casing is inconsistent across filers.
func findAttr(start xml.StartElement, name string) string {
	for _, attr := range start.Attr {
		if strings.EqualFold(attr.Name.Local, name) {
			return attr.Value
		}
	}
	return ""
}

// namespaceResolver maps namespace URIs back to the prefixes declared in
// the document so concept names keep their reported prefix form.
type namespaceResolver struct {
	prefixes map[string]string
}

// wellKnownPrefixes covers the taxonomies every SEC filing imports, used
// when a document resolves a name to a URI before its declaration has been
// observed.
var wellKnownPrefixes = map[string]string{
	"http://www.xbrl.org/2003/instance":        "xbrli",
	"http://www.xbrl.org/2003/linkbase":        "link",
	"http://xbrl.org/2006/xbrldi":              "xbrldi",
	"http://www.w3.org/2001/XMLSchema-instance": "xsi",
	"http://www.xbrl.org/2013/inlineXBRL":      "ix",
}

func newNamespaceResolver() *namespaceResolver {
	return &namespaceResolver{prefixes: make(map[string]string)}
}

// observe records xmlns declarations from an element's attributes.
func (ns *namespaceResolver) observe(start xml.StartElement) {
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" {
			ns.prefixes[attr.Value] = attr.Name.Local
		}
	}
}

// conceptName renders an element name as prefix:local, preferring the
// document's own declarations, then well-known taxonomy URIs, then a
// prefix derived from the URI itself.
func (ns *namespaceResolver) conceptName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}

	if prefix, ok := ns.prefixes[name.Space]; ok {
		return prefix + ":" + name.Local
	}
	if prefix, ok := wellKnownPrefixes[name.Space]; ok {
		return prefix + ":" + name.Local
	}

	// in lenient mode an undeclared prefix arrives verbatim in Space
	if !strings.Contains(name.Space, "/") {
		return name.Space + ":" + name.Local
	}

	switch {
	case strings.Contains(name.Space, "fasb.org/us-gaap"):
		return "us-gaap:" + name.Local
	case strings.Contains(name.Space, "fasb.org/srt"):
		return "srt:" + name.Local
	case strings.Contains(name.Space, "xbrl.sec.gov/dei"):
		return "dei:" + name.Local
	case strings.Contains(name.Space, "xbrl.sec.gov/country"):
		return "country:" + name.Local
	case strings.Contains(name.Space, "iso4217"):
		return "iso4217:" + name.Local
	}

	return name.Local
}
