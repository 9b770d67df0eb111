package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrEmptyResponse is returned when the model reply holds no JSON at all.
var ErrEmptyResponse = errors.New("empty model response")

// ParseError reports model output that does not satisfy its schema kind.
type ParseError struct {
	Kind Kind
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func compiledSchema(kind Kind) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Kind]*jsonschema.Schema, len(Kinds))
		for _, k := range Kinds {
			s, err := compileSchema(k)
			if err != nil {
				compileErr = err
				return
			}
			compiled[k] = s
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema kind %q", kind)
	}
	return s, nil
}

func compileSchema(kind Kind) (*jsonschema.Schema, error) {
	schemaMap, err := Schema(kind)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", kind, err)
	}
	url := string(kind) + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", kind, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", kind, err)
	}
	return schema, nil
}

// Validate checks raw JSON against the schema for kind.
func Validate(kind Kind, data []byte) error {
	_, err := validated(kind, data)
	return err
}

// validated decodes data, checks it against kind's schema and returns the decoded value.
func validated(kind Kind, data []byte) (any, error) {
	schema, err := compiledSchema(kind)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid json: trailing data after value")
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}
	return v, nil
}

// declaredOnly drops every object key the schema does not declare, at any depth.
// encoding/json matches keys case-insensitively, so an undeclared "Valid"
// would otherwise overwrite the validated "valid".
func declaredOnly(schema map[string]any, v any) any {
	switch val := v.(type) {
	case map[string]any:
		props, _ := schema["properties"].(map[string]any)
		out := make(map[string]any, len(props))
		for name, sub := range props {
			fv, ok := val[name]
			if !ok {
				continue
			}
			subSchema, _ := sub.(map[string]any)
			out[name] = declaredOnly(subSchema, fv)
		}
		return out
	case []any:
		items, _ := schema["items"].(map[string]any)
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = declaredOnly(items, item)
		}
		return out
	default:
		return v
	}
}

// Parse turns raw model text into the typed payload T. It never fills in
// missing fields or coerces types; any mismatch yields a *ParseError.
// Only the properties named in the schema are decoded.
func Parse[T Payload](raw string) (T, error) {
	var out T
	kind := out.Kind()

	body := StripEnvelope(raw)
	if body == "" {
		return out, &ParseError{Kind: kind, Raw: raw, Err: ErrEmptyResponse}
	}
	v, err := validated(kind, []byte(body))
	if err != nil {
		return out, &ParseError{Kind: kind, Raw: raw, Err: err}
	}
	schemaMap, err := Schema(kind)
	if err != nil {
		return out, &ParseError{Kind: kind, Raw: raw, Err: err}
	}
	clean, err := json.Marshal(declaredOnly(schemaMap, v))
	if err != nil {
		return out, &ParseError{Kind: kind, Raw: raw, Err: fmt.Errorf("re-encode: %w", err)}
	}
	if err := json.Unmarshal(clean, &out); err != nil {
		var zero T
		return zero, &ParseError{Kind: kind, Raw: raw, Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}
