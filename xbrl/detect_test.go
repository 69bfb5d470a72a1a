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
	"testing"

	"github.com/penny-vault/pvfilings/data"
	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	withInstance := &data.FilingDocuments{InstanceURL: "https://www.sec.gov/inst.xml"}
	withoutInstance := &data.FilingDocuments{}
	inlineHTML := []byte(`<html xmlns:ix="http://www.xbrl.org/2013/inlineXBRL"><ix:nonFraction/></html>`)
	plainHTML := []byte(`<html><body>plain filing</body></html>`)

	testCases := []struct {
		name string
		docs *data.FilingDocuments
		html []byte
		want []FactSource
	}{
		{"instance and inline markers", withInstance, inlineHTML,
			[]FactSource{SourceTraditionalXBRL, SourceInlineXBRL, SourceTextOnly}},
		{"instance only", withInstance, plainHTML,
			[]FactSource{SourceTraditionalXBRL, SourceTextOnly}},
		{"inline only", withoutInstance, inlineHTML,
			[]FactSource{SourceInlineXBRL, SourceTextOnly}},
		{"neither", withoutInstance, plainHTML,
			[]FactSource{SourceTextOnly}},
		{"nil documents", nil, plainHTML,
			[]FactSource{SourceTextOnly}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFormat(tc.docs, tc.html))
		})
	}
}

func TestFactSourceString(t *testing.T) {
	assert.Equal(t, "traditional-xbrl", SourceTraditionalXBRL.String())
	assert.Equal(t, "inline-xbrl", SourceInlineXBRL.String())
	assert.Equal(t, "text-only", SourceTextOnly.String())
}
