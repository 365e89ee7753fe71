package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
)

// FileImporter turns a local path into a file handle.
type FileImporter interface {
	Import(path string) (schema.FileValue, error)
}

// ParseValue converts text typed by the user into a value of schema s.
// Strings are taken as typed. Arrays and objects accept JSON or YAML flow
// syntax; an array of strings also accepts a comma separated list. File
// values are imported from a local path.
func ParseValue(s *schema.Schema, raw string, files FileImporter) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if s == nil {
		return raw, nil
	}

	switch s.Type {
	case schema.TypeString:
		return raw, nil
	case schema.TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case schema.TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	case schema.TypeFile:
		if files == nil {
			return nil, fmt.Errorf("file inputs are not supported here")
		}
		return files.Import(raw)
	case schema.TypeArray:
		if !strings.HasPrefix(raw, "[") && s.Items != nil && s.Items.Type == schema.TypeString {
			var items []interface{}
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					items = append(items, part)
				}
			}
			return items, nil
		}
		return decodeStructured(raw, s)
	case schema.TypeObject:
		return decodeStructured(raw, s)
	default:
		return nil, fmt.Errorf("unsupported schema type %q", s.Type)
	}
}

func decodeStructured(raw string, s *schema.Schema) (interface{}, error) {
	data, err := yaml.YAMLToJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s value: %w", s, err)
	}
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("cannot parse %s value: %w", s, err)
	}
	if err := s.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}
