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
	"bytes"
	"fmt"
	"strings"

	"github.com/penny-vault/pvfilings/data"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// DefaultCellDelimiter separates flattened table cells.
const DefaultCellDelimiter = "   "

type Options struct {
	FilingType    data.FilingType
	CellDelimiter string
}

// Extract renders an HTML filing as readable UTF-8 text. Scripts and styles
// are stripped; inline-XBRL wrapper elements contribute only their text;
// tables are flattened row by row; canonical section headings are preceded
// by an "@SECTION: <name>" sentinel line. The output is a pure function of
// the input bytes.
func Extract(htmlBytes []byte, opts Options) (string, error) {
	if opts.CellDelimiter == "" {
		opts.CellDelimiter = DefaultCellDelimiter
	}

	reader, err := charset.NewReader(bytes.NewReader(htmlBytes), "text/html")
	if err != nil {
		reader = bytes.NewReader(htmlBytes)
	}

	root, err := html.Parse(reader)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	renderer := &textRenderer{}
	renderer.walk(root)

	text := normalizeWhitespace(renderer.builder.String(), opts.CellDelimiter)
	return tagSections(text, opts.FilingType, opts.CellDelimiter), nil
}

// cellMarker separates table cells in the intermediate rendering; it is
// replaced by the configured delimiter during whitespace normalization so
// that whitespace in prose can collapse without destroying table rows.
const cellMarker = "\x00"

type textRenderer struct {
	builder strings.Builder
}

func (r *textRenderer) walk(node *html.Node) {
	switch node.Type {
	case html.ElementNode:
		switch node.Data {
		case "script", "style", "head", "title", "noscript":
			return
		case "table":
			r.renderTable(node)
			return
		case "br":
			r.builder.WriteString("\n")
			return
		}
	case html.TextNode:
		r.builder.WriteString(node.Data)
		return
	}

	block := node.Type == html.ElementNode && isBlockElement(node.Data)
	if block {
		r.builder.WriteString("\n\n")
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		r.walk(child)
	}

	if block {
		r.builder.WriteString("\n\n")
	}
}

// renderTable flattens a table one row per line with cells joined by the
// cell marker.
func (r *textRenderer) renderTable(table *html.Node) {
	r.builder.WriteString("\n\n")

	var walkRows func(*html.Node)
	walkRows = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			cells := make([]string, 0, 8)
			for cell := node.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type != html.ElementNode || (cell.Data != "td" && cell.Data != "th") {
					continue
				}
				cells = append(cells, collapseSpaces(nodeText(cell)))
			}

			row := strings.TrimSpace(strings.Join(cells, cellMarker))
			if row != "" {
				r.builder.WriteString(row)
				r.builder.WriteString("\n")
			}
			return
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walkRows(child)
		}
	}
	walkRows(table)

	r.builder.WriteString("\n\n")
}

// nodeText returns the concatenated text of a node, skipping scripts and
// styles. Inline XBRL tags contribute their text content.
func nodeText(node *html.Node) string {
	var builder strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)

	return builder.String()
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "ul", "ol", "blockquote",
		"h1", "h2", "h3", "h4", "h5", "h6", "tr", "hr", "center":
		return true
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapseLine collapses whitespace runs within a line and materializes cell
// markers as the configured delimiter. Empty cells fold into a single
// delimiter.
func collapseLine(line, delimiter string) string {
	parts := strings.Split(line, cellMarker)
	kept := parts[:0]
	for _, part := range parts {
		part = collapseSpaces(part)
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, delimiter)
}

// normalizeWhitespace collapses runs of spaces within lines and runs of
// blank lines to a single paragraph boundary.
func normalizeWhitespace(text, delimiter string) string {
	lines := strings.Split(text, "\n")

	out := make([]string, 0, len(lines))
	blank := true

	for _, line := range lines {
		line = collapseLine(line, delimiter)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n") + "\n"
}
