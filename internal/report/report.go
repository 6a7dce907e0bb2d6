// Package report renders the final translation report.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed report.md.tmpl
var markdownTemplate string

// Format is an output format of the report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
)

// Formats returns all supported formats.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatHTML, FormatYAML, FormatJSON}
}

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat parses a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// Document is everything a rendered report shows.
type Document struct {
	Report       *domain.FinalReport `json:"report" yaml:"report"`
	OriginalText string              `json:"originalText,omitempty" yaml:"original_text,omitempty"`
	Prompts      []domain.Prompt     `json:"prompts,omitempty" yaml:"-"`
}

// NewDocument builds a Document from the workflow state.
// Returns ErrNoReport if no report has been generated.
func NewDocument(state domain.WorkflowState) (Document, error) {
	if state.FinalReport == nil {
		return Document{}, fmt.Errorf("render report: %w", domain.ErrNoReport)
	}
	doc := Document{Report: state.FinalReport, Prompts: state.Prompts}
	if state.CurrentTask != nil {
		doc.OriginalText = state.CurrentTask.OriginalText
	}
	return doc, nil
}

// Render writes doc to w in the given format.
func Render(w io.Writer, format Format, doc Document) error {
	if doc.Report == nil {
		return fmt.Errorf("render report: %w", domain.ErrNoReport)
	}
	switch format {
	case FormatMarkdown:
		return renderMarkdown(w, doc)
	case FormatHTML:
		return renderHTML(w, doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"deref": func(f *float64) float64 { return *f },
	"quote": func(s string) string {
		return "> " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
	},
	"cell": func(s string) string {
		s = strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
		return strings.ReplaceAll(s, "\n", " ")
	},
	"rating": func(r *domain.Rating) string {
		if r == nil {
			return "-"
		}
		return string(*r)
	},
	"score": func(f *float64) string {
		if f == nil {
			return "-"
		}
		return fmt.Sprintf("%.1f", *f)
	},
}).Parse(markdownTemplate))

func renderMarkdown(w io.Writer, doc Document) error {
	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

func renderHTML(w io.Writer, doc Document) error {
	var src bytes.Buffer
	if err := renderMarkdown(&src, doc); err != nil {
		return err
	}

	title := template.HTMLEscapeString(doc.Report.TaskTitle)
	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n", title); err != nil {
		return err
	}
	if err := md.Convert(src.Bytes(), w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}
