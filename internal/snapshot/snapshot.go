// Package snapshot encodes workflow snapshots and validates them against
// the embedded JSON schema before they are trusted.
package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema.json
var schemaJSON []byte

const schemaName = "snapshot.schema.json"

// printer formats schema validation messages.
var printer = message.NewPrinter(language.English)

var schema = mustCompileSchema(schemaJSON, schemaName)

func mustCompileSchema(raw []byte, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidationError lists every problem found in a snapshot.
// It matches domain.ErrInvalidSnapshot with errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrInvalidSnapshot, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidSnapshot
}

// Validate checks raw JSON against the snapshot schema.
func Validate(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ValidationError{Problems: []string{fmt.Sprintf("JSON parse error: %v", err)}}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return &ValidationError{Problems: []string{fmt.Sprintf("schema: %v", err)}}
		}
		var problems []string
		collectSchemaErrors(ve, &problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}

func collectSchemaErrors(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*problems = append(*problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, problems)
	}
}

// Decode validates data and returns the snapshot it holds.
// Besides the schema it checks that prompt IDs are unique and that
// evaluations and the selection reference existing prompts.
func Decode(data []byte) (*domain.Snapshot, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}
	if err := CheckReferences(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// CheckReferences verifies the links between prompts, evaluations and the selection.
func CheckReferences(snap *domain.Snapshot) error {
	var problems []string

	ids := make(map[string]bool, len(snap.Prompts))
	for i, p := range snap.Prompts {
		if ids[p.ID] {
			problems = append(problems, fmt.Sprintf("/prompts/%d/id: duplicate id %q", i, p.ID))
		}
		ids[p.ID] = true
	}
	for id := range snap.Evaluations {
		if !ids[id] {
			problems = append(problems, fmt.Sprintf("/evaluations/%s: no such prompt", id))
		}
	}
	if snap.SelectedPrompt != nil && !ids[*snap.SelectedPrompt] {
		problems = append(problems, fmt.Sprintf("/selectedPrompt: no such prompt %q", *snap.SelectedPrompt))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Encode returns the indented JSON form of snap.
func Encode(snap *domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}
