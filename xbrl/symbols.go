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

// ConceptID is a compact identifier for an interned concept name. Filings
// repeat the same few hundred concepts across thousands of facts, so joins
// run on ids instead of namespaced strings.
type ConceptID int32

// SymbolTable interns namespaced concept names. It is scoped to a single
// filing and is not safe for concurrent use.
type SymbolTable struct {
	names []string
	ids   map[string]ConceptID
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		names: make([]string, 0, 512),
		ids:   make(map[string]ConceptID, 512),
	}
}

// Intern returns the id for name, assigning one on first sight.
func (table *SymbolTable) Intern(name string) ConceptID {
	if id, ok := table.ids[name]; ok {
		return id
	}

	id := ConceptID(len(table.names))
	table.names = append(table.names, name)
	table.ids[name] = id
	return id
}

// Lookup returns the id for name without interning.
func (table *SymbolTable) Lookup(name string) (ConceptID, bool) {
	id, ok := table.ids[name]
	return id, ok
}

// Name resolves an id back to the namespaced concept name.
func (table *SymbolTable) Name(id ConceptID) string {
	if int(id) < 0 || int(id) >= len(table.names) {
		return ""
	}
	return table.names[id]
}

// Len returns the number of interned concepts.
func (table *SymbolTable) Len() int {
	return len(table.names)
}
