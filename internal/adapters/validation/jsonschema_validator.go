package validation

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/s3_event.schema.json
var s3EventSchema []byte

const s3EventSchemaURL = "s3_event.schema.json"

// JSONSchemaValidator implements ports.NotificationValidator using the
// compiled S3 event notification schema.
type JSONSchemaValidator struct {
	schema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles the embedded notification schema.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	if err := compiler.AddResource(s3EventSchemaURL, bytes.NewReader(s3EventSchema)); err != nil {
		return nil, fmt.Errorf("failed to load S3 event schema: %w", err)
	}
	schema, err := compiler.Compile(s3EventSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile S3 event schema: %w", err)
	}

	return &JSONSchemaValidator{schema: schema}, nil
}

func (v *JSONSchemaValidator) Validate(ctx context.Context, payload []byte) error {
	// Numbers stay json.Number so integer checks on sizes are exact.
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	if err := v.schema.Validate(data); err != nil {
		return fmt.Errorf("notification does not match %s: %w", s3EventSchemaURL, err)
	}
	return nil
}
