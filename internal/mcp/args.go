package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const errTemplateRequired = "doc_type or template_id is required"

// decodeArgument decodes args[key] into dst. Clients send structured values
// either as JSON values or as JSON text in a string; both are accepted.
// A missing or null argument leaves dst untouched.
func decodeArgument(args map[string]any, key string, dst any) error {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}

	var data []byte
	if s, isString := raw.(string); isString {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

// requireArgument is decodeArgument for required arguments
func requireArgument(args map[string]any, key string, dst any) error {
	if raw, ok := args[key]; !ok || raw == nil {
		return fmt.Errorf("required argument %q not found", key)
	}
	return decodeArgument(args, key, dst)
}

// optionalFloat returns nil when the argument was not sent
func optionalFloat(request mcp.CallToolRequest, key string) *float64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetFloat(key, 0)
	return &v
}
