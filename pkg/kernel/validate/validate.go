// Package validate implements the Output Validator (4.I), checking an
// assembled output mapping against a Skill's output_contract, and the
// Comprehensive Validator (4.J), a static analysis pass over a parsed
// Skill — grounded on the teacher's structural/semantic/domain pipeline,
// narrowed to the categories a 4-kind step model can actually violate.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschemaV6 "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// Result is the Output Validator's verdict.
type Result struct {
	Failed  bool
	Message string
}

// ValidateOutput checks an assembled output mapping against contract: each
// required field must be present and non-null, and each present field's
// runtime type must coarse-match its declared FieldType. Delegates the
// actual checking to a compiled santhosh-tekuri/jsonschema/v6 schema built
// from schema.ExportSchema, rather than a hand-rolled type switch. The
// Comprehensive Validator's checks do not use this engine.
func ValidateOutput(output map[string]any, contract schema.OutputContract) Result {
	if len(contract.Fields) == 0 {
		return Result{}
	}

	doc := schema.ExportSchema(contract.Fields, contract.Order)
	raw, err := json.Marshal(doc)
	if err != nil {
		return Result{Failed: true, Message: fmt.Sprintf("export output schema: %v", err)}
	}

	compiler := jsonschemaV6.NewCompiler()
	const resourceURL = "mem://output-contract.json"
	if err := compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return Result{Failed: true, Message: fmt.Sprintf("compile output schema: %v", err)}
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return Result{Failed: true, Message: fmt.Sprintf("compile output schema: %v", err)}
	}

	instance, err := toJSONValue(output)
	if err != nil {
		return Result{Failed: true, Message: fmt.Sprintf("marshal output: %v", err)}
	}
	if err := compiled.Validate(instance); err != nil {
		return Result{Failed: true, Message: err.Error()}
	}
	return Result{}
}

// toJSONValue round-trips v through JSON so the result only contains the
// plain map/slice/string/float64/bool/nil shapes jsonschema/v6 expects.
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
