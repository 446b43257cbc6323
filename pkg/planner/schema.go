package planner

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// PlanSchema is the JSON schema plan documents are validated against
// before being accepted for execution.
const PlanSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["plan_id", "steps"],
  "properties": {
    "plan_id": {"type": "string", "minLength": 1},
    "domain": {"type": "string"},
    "complexity": {"type": "integer", "minimum": 0},
    "parallel": {"type": "boolean"},
    "metadata": {"type": "object"},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "description": {"type": "string"},
          "agent": {"type": "string"},
          "parameters": {"type": "object"},
          "depends_on": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}`

var planSchemaLoader = gojsonschema.NewStringLoader(PlanSchema)

// ValidateDocument checks a raw plan document against the plan schema.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(planSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for i, verr := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += verr.String()
		}
		return fmt.Errorf("invalid plan document: %s", msg)
	}
	return nil
}

// ParseDocument validates and decodes a raw plan document.
func ParseDocument(data []byte) (*Plan, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var doc struct {
		PlanID     string         `json:"plan_id"`
		Domain     string         `json:"domain"`
		Complexity int            `json:"complexity"`
		Parallel   bool           `json:"parallel"`
		Metadata   map[string]any `json:"metadata"`
		Steps      []Step         `json:"steps"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan document: %w", err)
	}

	p := NewPlanner()
	plan, err := p.BuildPlan("", doc.Domain, doc.Steps)
	if err != nil {
		return nil, err
	}
	plan.ID = doc.PlanID
	plan.Parallel = doc.Parallel
	plan.Complexity = doc.Complexity
	plan.Metadata = doc.Metadata
	return plan, nil
}
