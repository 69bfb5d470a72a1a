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
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrParse indicates the document refused every parsing strategy.
var ErrParse = errors.New("xbrl parse failed")

// Period is either an instant or a start/end duration. Dates are retained
// as the YYYY-MM-DD strings the filing reported.
type Period struct {
	Instant   string
	StartDate string
	EndDate   string
}

func (p Period) IsInstant() bool {
	return p.Instant != ""
}

// EndTime returns the period's terminal date for sorting. Zero when the
// date cannot be parsed.
func (p Period) EndTime() time.Time {
	raw := p.EndDate
	if p.IsInstant() {
		raw = p.Instant
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether exactly one of instant or start+end is present.
func (p Period) Valid() bool {
	if p.Instant != "" {
		return p.StartDate == "" && p.EndDate == ""
	}
	return p.StartDate != "" && p.EndDate != ""
}

// Context describes the entity, period, and dimensional qualifiers a fact
// reports against.
type Context struct {
	ID     string
	Entity string
	Period Period

	// Dimensions maps dimension concept -> member concept, both retained
	// verbatim with their namespace prefixes.
	Dimensions map[string]string
}

// DimensionLabels returns "dimension = member" pairs sorted by dimension
// name for deterministic output.
func (c *Context) DimensionLabels() []string {
	if len(c.Dimensions) == 0 {
		return nil
	}

	dims := make([]string, 0, len(c.Dimensions))
	for dim := range c.Dimensions {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	labels := make([]string, 0, len(dims))
	for _, dim := range dims {
		labels = append(labels, fmt.Sprintf("%s = %s", dim, c.Dimensions[dim]))
	}
	return labels
}

// Unit is a measurement unit: either a single measure or a
// numerator/denominator pair. Measure strings keep their namespace prefix
// verbatim (iso4217:USD, shares, ...).
type Unit struct {
	ID          string
	Measure     string
	Numerator   string
	Denominator string
}

// Expression renders the unit for the data dictionary.
func (u *Unit) Expression() string {
	if u.Numerator != "" {
		return fmt.Sprintf("%s / %s", u.Numerator, u.Denominator)
	}
	return u.Measure
}

// Fact is one reported value. Concept is an interned symbol id; Value is
// the text exactly as the filing reported it. Numeric carries the parsed
// normalization when one exists.
type Fact struct {
	Concept    ConceptID
	Value      string
	Numeric    *float64
	ContextRef string
	UnitRef    string
	Decimals   string
	Precision  string
	Nil        bool
}

// FactTable is the complete extraction result for one filing. It owns its
// contexts, units, and facts; nothing in it outlives the filing's
// processing scope.
type FactTable struct {
	Contexts     map[string]*Context
	ContextOrder []string
	Units        map[string]*Unit
	UnitOrder    []string
	Facts        []*Fact
	Symbols      *SymbolTable
	Source       FactSource
}

func NewFactTable(source FactSource) *FactTable {
	return &FactTable{
		Contexts: make(map[string]*Context),
		Units:    make(map[string]*Unit),
		Facts:    make([]*Fact, 0, 256),
		Symbols:  NewSymbolTable(),
		Source:   source,
	}
}

// AddContext registers a context definition. When two contexts share an id
// the first occurrence wins; later definitions are logged and discarded.
func (table *FactTable) AddContext(ctx *Context) {
	if _, exists := table.Contexts[ctx.ID]; exists {
		log.Warn().Str("ContextID", ctx.ID).Msg("duplicate context definition discarded")
		return
	}
	table.Contexts[ctx.ID] = ctx
	table.ContextOrder = append(table.ContextOrder, ctx.ID)
}

func (table *FactTable) AddUnit(unit *Unit) {
	if _, exists := table.Units[unit.ID]; exists {
		log.Warn().Str("UnitID", unit.ID).Msg("duplicate unit definition discarded")
		return
	}
	table.Units[unit.ID] = unit
	table.UnitOrder = append(table.UnitOrder, unit.ID)
}

func (table *FactTable) AddFact(fact *Fact) {
	table.Facts = append(table.Facts, fact)
}

// ConceptName resolves a fact's interned concept back to its namespaced
// name.
func (table *FactTable) ConceptName(fact *Fact) string {
	return table.Symbols.Name(fact.Concept)
}

// FactsFor returns facts whose concept name matches, used by the fiscal
// attributor to look up dei evidence.
func (table *FactTable) FactsFor(concept string) []*Fact {
	id, ok := table.Symbols.Lookup(concept)
	if !ok {
		return nil
	}

	matches := make([]*Fact, 0, 1)
	for _, fact := range table.Facts {
		if fact.Concept == id {
			matches = append(matches, fact)
		}
	}
	return matches
}

// FirstValue returns the first non-empty value reported for a concept.
func (table *FactTable) FirstValue(concept string) string {
	for _, fact := range table.FactsFor(concept) {
		if value := strings.TrimSpace(fact.Value); value != "" {
			return value
		}
	}
	return ""
}
