package recovery

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/archguide/pkg/domain"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// tacticsSchemaTemplate is the wire contract of the tactic array; %[1]d is K.
// categories carries no minItems: reconstructed items default to [].
const tacticsSchemaTemplate = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://archguide.dev/schemas/tactics-%[1]d.json",
  "type": "array",
  "minItems": %[1]d,
  "maxItems": %[1]d,
  "items": {
    "type": "object",
    "required": ["name", "rationale", "categories", "successProbability", "rank"],
    "properties": {
      "name": { "type": "string", "minLength": 1 },
      "purpose": { "type": "string" },
      "rationale": { "type": "string" },
      "categories": { "type": "array", "items": { "type": "string" } },
      "risks": { "type": "array", "items": { "type": "string" } },
      "tradeoffs": { "type": "array", "items": { "type": "string" } },
      "tracesToArtifact": { "type": "string" },
      "expectedEffect": { "type": "string" },
      "successProbability": { "type": "number", "minimum": 0, "maximum": 1 },
      "rank": { "type": "integer", "minimum": 1, "maximum": %[1]d }
    }
  },
  "uniqueItems": true
}`

// Validator checks normalized items against the wire schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the schema for arrays of exactly k items.
func NewValidator(k int) (*Validator, error) {
	src := fmt.Sprintf(tacticsSchemaTemplate, k)
	url := fmt.Sprintf("https://archguide.dev/schemas/tactics-%d.json", k)

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tactics schema: %w", err)
	}
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add tactics schema resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile tactics schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// Validate reports schema violations wrapped in domain.ErrParseFailure.
func (v *Validator) Validate(items []domain.TacticItem) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	// round-trip so numbers become json.Number
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return nil
}

// ValidateJSON checks an arbitrary JSON document (e.g. a client payload)
// against the wire schema.
func (v *Validator) ValidateJSON(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return nil
}
