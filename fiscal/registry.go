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
package fiscal

import (
	"time"

	"github.com/penny-vault/pvfilings/data"
)

// CalendarEntry declares a company's fiscal-year end. Day is informational;
// classification works on month offsets with tolerance for 52/53-week
// calendars.
type CalendarEntry struct {
	Ticker   string
	FYEMonth time.Month
	FYEDay   int
}

// Registry holds per-company fiscal calendars. It is built once at startup
// and read-only afterwards, so workers share it without locking.
type Registry struct {
	entries map[string]CalendarEntry
}

// NewRegistry returns a registry seeded with the known fiscal patterns:
// Apple ends September, Microsoft June, Nvidia late January, Alphabet and
// Amazon follow the calendar year.
func NewRegistry() *Registry {
	reg := &Registry{entries: make(map[string]CalendarEntry)}

	for _, entry := range []CalendarEntry{
		{Ticker: "AAPL", FYEMonth: time.September, FYEDay: 30},
		{Ticker: "MSFT", FYEMonth: time.June, FYEDay: 30},
		{Ticker: "NVDA", FYEMonth: time.January, FYEDay: 26},
		{Ticker: "GOOGL", FYEMonth: time.December, FYEDay: 31},
		{Ticker: "AMZN", FYEMonth: time.December, FYEDay: 31},
	} {
		reg.entries[entry.Ticker] = entry
	}

	return reg
}

// Add registers a calendar entry. Call before handing the registry to
// workers; the registry is not safe for concurrent mutation.
func (reg *Registry) Add(ticker string, month time.Month, day int) {
	ticker = data.NormalizeTicker(ticker)
	reg.entries[ticker] = CalendarEntry{Ticker: ticker, FYEMonth: month, FYEDay: day}
}

// Lookup returns the calendar entry for a ticker.
func (reg *Registry) Lookup(ticker string) (CalendarEntry, bool) {
	entry, ok := reg.entries[data.NormalizeTicker(ticker)]
	return entry, ok
}

// Len returns the number of registered calendars.
func (reg *Registry) Len() int {
	return len(reg.entries)
}
