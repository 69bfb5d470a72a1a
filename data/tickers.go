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
	"os"

	"github.com/gocarina/gocsv"
)

type tickerRow struct {
	Ticker string `csv:"ticker"`
	Name   string `csv:"name,omitempty"`
}

// LoadTickerFile reads a CSV with a `ticker` column (and optional `name`)
// and returns the normalized ticker symbols in file order. Duplicates are
// dropped, keeping the first occurrence.
func LoadTickerFile(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rows := []*tickerRow{}
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	tickers := make([]string, 0, len(rows))
	for _, row := range rows {
		ticker := NormalizeTicker(row.Ticker)
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}

	return tickers, nil
}
