package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// document converts v to generic values keyed like its JSON encoding.
// Integers stay integers so that YAML and TOML do not print them as floats.
func document(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return numbers(doc), nil
}

func numbers(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = numbers(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = numbers(e)
		}
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	default:
		return v
	}
}

// pruneNulls removes null values, which TOML cannot represent.
func pruneNulls(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			if e == nil {
				delete(v, k)
				continue
			}
			v[k] = pruneNulls(e)
		}
		return v
	case []any:
		out := make([]any, 0, len(v))
		for _, e := range v {
			if e == nil {
				continue
			}
			out = append(out, pruneNulls(e))
		}
		return out
	default:
		return v
	}
}

func writeYAML(w io.Writer, results []pipeline.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, r := range results {
		doc, err := document(r)
		if err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return enc.Close()
}

func writeTOML(w io.Writer, results []pipeline.Result) error {
	var v any = results
	if results == nil {
		v = []pipeline.Result{}
	}
	if len(results) == 1 {
		v = results[0]
	}
	doc, err := document(v)
	if err != nil {
		return err
	}
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"results": list}
	}
	doc = pruneNulls(doc)

	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("could not encode TOML: %w", err)
	}
	return nil
}
