package toolregistry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validateJSONSchema compiles schema (a JSON Schema document) and validates
// params against it, per §6 ("arguments are validated against the tool's
// parameters schema before execution").
func validateJSONSchema(schema, params json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	const resourceName = "tool-schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("compiling tool schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("compiling tool schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(params, &doc); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return err
	}
	return nil
}
