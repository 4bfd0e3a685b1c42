package platform

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// RequestSchema is the JSON schema of Request as exchanged with WebAssembly guests.
func RequestSchema() ([]byte, error) {
	return schemaOf(&Request{})
}

// ResponseSchema is the JSON schema of Response as exchanged with WebAssembly guests.
func ResponseSchema() ([]byte, error) {
	return schemaOf(&Response{})
}

func schemaOf(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
