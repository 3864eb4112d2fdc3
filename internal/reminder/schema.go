package reminder

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileToolSchema compiles the input schema a tool advertises so calls can
// be checked against it before touching the store.
func compileToolSchema(tool mcp.Tool) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal input schema for %s", tool.Name)
	}

	url := tool.Name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrapf(err, "failed to add input schema for %s", tool.Name)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile input schema for %s", tool.Name)
	}
	return schema, nil
}

// validateArgs reports the first schema violation as a validation error
// naming the offending argument.
func validateArgs(schema *jsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	err := schema.Validate(args)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return validationError("arguments", err.Error())
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		field = "arguments"
	}
	return validationError(field, leaf.Message)
}
