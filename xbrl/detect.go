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

	"github.com/penny-vault/pvfilings/data"
)

// FactSource identifies where a filing's facts come from.
type FactSource int

const (
	SourceTextOnly FactSource = iota
	SourceTraditionalXBRL
	SourceInlineXBRL
)

func (s FactSource) String() string {
	switch s {
	case SourceTraditionalXBRL:
		return "traditional-xbrl"
	case SourceInlineXBRL:
		return "inline-xbrl"
	default:
		return "text-only"
	}
}

var inlineMarkers = [][]byte{
	[]byte("http://www.xbrl.org/2013/inlineXBRL"),
	[]byte("<ix:"),
	[]byte("<IX:"),
}

// DetectFormat classifies a filing and returns the ordered fallback list of
// fact-extraction strategies. A discovered instance document makes
// traditional XBRL the primary strategy; inline markers in the HTML make
// inline extraction available; text-only always terminates the list so a
// filing with unusable facts still yields a text artifact.
func DetectFormat(docs *data.FilingDocuments, primaryHTML []byte) []FactSource {
	strategies := make([]FactSource, 0, 3)

	if docs != nil && docs.InstanceURL != "" {
		strategies = append(strategies, SourceTraditionalXBRL)
	}

	for _, marker := range inlineMarkers {
		if bytes.Contains(primaryHTML, marker) {
			strategies = append(strategies, SourceInlineXBRL)
			break
		}
	}

	return append(strategies, SourceTextOnly)
}
