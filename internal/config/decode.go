package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
)

type fieldSpec struct {
	name     string
	required bool
}

// checkKeys is the first decoding pass: the key set of data must contain every
// required field and nothing that is not declared.
func checkKeys(path string, data map[string]any, fields []fieldSpec) error {
	declared := make(map[string]struct{}, len(fields))
	var errs []error
	for _, f := range fields {
		declared[f.name] = struct{}{}
		if _, ok := data[f.name]; f.required && !ok {
			errs = append(errs, schemaErrorf(joinPath(path, f.name), "required field is missing"))
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := declared[k]; !ok {
			errs = append(errs, schemaErrorf(joinPath(path, k), "unknown field"))
		}
	}
	return errors.Join(errs...)
}

// record is the second decoding pass over a mapping whose key set has already
// been checked. Accessors return zero values on failure and collect errors.
type record struct {
	path string
	data map[string]any
	errs []error
}

func newRecord(path string, data map[string]any) *record {
	return &record{path: path, data: data}
}

func (r *record) err() error {
	return errors.Join(r.errs...)
}

func (r *record) fail(err error) {
	r.errs = append(r.errs, err)
}

func (r *record) at(key string) string {
	return joinPath(r.path, key)
}

func (r *record) str(key string) string {
	v := r.data[key]
	s, ok := v.(string)
	if !ok {
		r.fail(typeError(r.at(key), "string", v))
	}
	return s
}

// optionalStr accepts an absent key or an explicit null.
func (r *record) optionalStr(key string) string {
	v, ok := r.data[key]
	if !ok || v == nil {
		return ""
	}
	return r.str(key)
}

func (r *record) boolean(key string) bool {
	v := r.data[key]
	b, ok := v.(bool)
	if !ok {
		r.fail(typeError(r.at(key), "bool", v))
	}
	return b
}

func (r *record) list(key string) []any {
	v := r.data[key]
	items, ok := v.([]any)
	if !ok {
		r.fail(typeError(r.at(key), "list", v))
		return nil
	}
	return items
}

// strList decodes a list of strings. An empty list decodes to nil.
func (r *record) strList(key string) []string {
	items := r.list(key)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			r.fail(typeError(indexPath(r.at(key), i), "string", item))
			continue
		}
		out = append(out, s)
	}
	return out
}

// uri parses an absolute URI.
func (r *record) uri(key string) *url.URL {
	raw := r.str(key)
	if raw == "" {
		if _, ok := r.data[key].(string); ok {
			r.fail(schemaErrorf(r.at(key), "empty URI"))
		}
		return nil
	}
	u, err := parseAbsoluteURL(raw)
	if err != nil {
		r.fail(schemaErrorf(r.at(key), "%v", err))
		return nil
	}
	return u
}

// urlString validates a URL but keeps its textual form.
func (r *record) urlString(key string) string {
	if u := r.uri(key); u != nil {
		return r.data[key].(string)
	}
	return ""
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URI %q: scheme and host are required", raw)
	}
	return u, nil
}

func typeError(path, want string, got any) *SchemaError {
	return schemaErrorf(path, "expected %s, got %s", want, kindOf(got))
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
