package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLinesPerPage is used when a caller passes a non-positive page size.
const DefaultLinesPerPage = 50

// Render writes doc to w in the requested format.
func Render(w io.Writer, doc *Document, format Format, linesPerPage int) error {
	switch format {
	case FormatText:
		return renderText(w, doc, linesPerPage)
	case FormatYAML:
		return renderYAML(w, doc)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Paginate lays the document out as text lines grouped into pages of at most
// linesPerPage lines, footer excluded. A field block is only split across
// pages when it is longer than a whole page.
func Paginate(doc *Document, linesPerPage int) [][]string {
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}

	blocks := [][]string{{doc.Title, ""}}
	for _, f := range doc.Fields {
		blocks = append(blocks, fieldLines(f))
	}

	var pages [][]string
	var current []string
	flush := func() {
		if len(current) > 0 {
			pages = append(pages, current)
			current = nil
		}
	}
	for _, block := range blocks {
		if len(current)+len(block) > linesPerPage {
			flush()
		}
		for len(block) > linesPerPage {
			pages = append(pages, block[:linesPerPage])
			block = block[linesPerPage:]
		}
		current = append(current, block...)
	}
	flush()
	return pages
}

func fieldLines(f Field) []string {
	switch {
	case f.spacer():
		return []string{""}
	case f.Group:
		return []string{f.Heading, ""}
	}
	lines := []string{f.Heading}
	lines = append(lines, strings.Split(valueOrPlaceholder(f.Value), "\n")...)
	return append(lines, "")
}

func valueOrPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotProvided
	}
	return v
}

func renderText(w io.Writer, doc *Document, linesPerPage int) error {
	pages := Paginate(doc, linesPerPage)
	bw := bufio.NewWriter(w)
	for i, page := range pages {
		if i > 0 {
			bw.WriteString("\f\n")
		}
		for _, line := range page {
			bw.WriteString(line)
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "Page %d of %d\n", i+1, len(pages))
	}
	return bw.Flush()
}

type yamlSection struct {
	Heading string  `yaml:"heading,omitempty"`
	Fields  []Field `yaml:"fields"`
}

type yamlDocument struct {
	DocumentID string        `yaml:"documentId"`
	WorkflowID int64         `yaml:"workflowId"`
	Stage      string        `yaml:"stage"`
	Title      string        `yaml:"title"`
	Sections   []yamlSection `yaml:"sections"`
}

func renderYAML(w io.Writer, doc *Document) error {
	out := yamlDocument{
		DocumentID: doc.ID,
		WorkflowID: doc.WorkflowID,
		Stage:      string(doc.Stage),
		Title:      doc.Title,
	}

	section := yamlSection{}
	for _, f := range doc.Fields {
		switch {
		case f.spacer():
			continue
		case f.Group:
			if len(section.Fields) > 0 || section.Heading != "" {
				out.Sections = append(out.Sections, section)
			}
			section = yamlSection{Heading: f.Heading}
		default:
			section.Fields = append(section.Fields, Field{Heading: f.Heading, Value: valueOrPlaceholder(f.Value)})
		}
	}
	if len(section.Fields) > 0 || section.Heading != "" {
		out.Sections = append(out.Sections, section)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode yaml export: %w", err)
	}
	return enc.Close()
}
