// Package serialize converts typed resource values to CloudFormation property
// maps and finds the logical IDs those properties reference.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Resource converts a typed resource (or any nested property struct) into
// the property map written under Properties. Keys come from json tags.
// Nil, empty and zero fields are dropped; a false stored in an any field is
// kept because the interface itself is non-nil. json.Marshaler values
// (intrinsics, AttrRef) are decoded back to plain maps. Non-struct input
// yields a nil map.
func Resource(v any) (map[string]any, error) {
	val := reflect.Indirect(reflect.ValueOf(v))
	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	props := make(map[string]any)
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := propertyName(field)
		if name == "-" {
			continue
		}
		fv := val.Field(i)
		if omit(fv) {
			continue
		}
		out, err := value(fv)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if out != nil {
			props[name] = out
		}
	}
	return props, nil
}

func propertyName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// omit reports whether a field holds nothing worth writing.
func omit(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
		return false
	case reflect.Func, reflect.Chan:
		return true
	default:
		return v.IsZero()
	}
}

// value converts one field value to its JSON-compatible form.
func value(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	if m, ok := v.Interface().(json.Marshaler); ok {
		return viaJSON(m)
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		items := make([]any, v.Len())
		for i := range items {
			item, err := value(v.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		entries := make(map[string]any, v.Len())
		for iter := v.MapRange(); iter.Next(); {
			entry, err := value(iter.Value())
			if err != nil {
				return nil, err
			}
			entries[fmt.Sprint(iter.Key().Interface())] = entry
		}
		return entries, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	default:
		return viaJSON(v.Interface())
	}
}

func viaJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reference is a logical ID found in serialized properties.
type Reference struct {
	// Name is the referenced logical ID.
	Name string
	// Attribute is set for Fn::GetAtt and ${Name.Attr} references.
	Attribute string
}

// References walks serialized properties and returns every Ref, Fn::GetAtt
// and Fn::Sub reference, sorted and de-duplicated. Pseudo-parameters
// (AWS::Region, ...) are skipped.
func References(v any) []Reference {
	seen := make(map[Reference]bool)
	collectRefs(v, seen)

	refs := make([]Reference, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Attribute < refs[j].Attribute
	})
	return refs
}

func collectRefs(v any, seen map[Reference]bool) {
	switch val := v.(type) {
	case map[string]any:
		if name, ok := val["Ref"].(string); ok && len(val) == 1 {
			addRef(seen, name, "")
			return
		}
		if args, ok := val["Fn::GetAtt"]; ok && len(val) == 1 {
			addGetAtt(seen, args)
			return
		}
		if args, ok := val["Fn::Sub"]; ok && len(val) == 1 {
			addSub(seen, args)
			return
		}
		for _, elem := range val {
			collectRefs(elem, seen)
		}
	case []any:
		for _, elem := range val {
			collectRefs(elem, seen)
		}
	}
}

func addRef(seen map[Reference]bool, name, attr string) {
	if name == "" || strings.HasPrefix(name, "AWS::") {
		return
	}
	seen[Reference{Name: name, Attribute: attr}] = true
}

func addGetAtt(seen map[Reference]bool, args any) {
	switch a := args.(type) {
	case []any:
		if len(a) == 2 {
			name, _ := a[0].(string)
			attr, _ := a[1].(string)
			addRef(seen, name, attr)
		}
	case []string:
		if len(a) == 2 {
			addRef(seen, a[0], a[1])
		}
	case string:
		// Short form "Name.Attr".
		name, attr, _ := strings.Cut(a, ".")
		addRef(seen, name, attr)
	}
}

func addSub(seen map[Reference]bool, args any) {
	var (
		format string
		vars   map[string]any
	)
	switch a := args.(type) {
	case string:
		format = a
	case []any:
		if len(a) > 0 {
			format, _ = a[0].(string)
		}
		if len(a) > 1 {
			vars, _ = a[1].(map[string]any)
			for _, val := range vars {
				collectRefs(val, seen)
			}
		}
	}

	for _, name := range SubVariables(format) {
		if _, local := vars[name]; local {
			continue
		}
		ref, attr, _ := strings.Cut(name, ".")
		addRef(seen, ref, attr)
	}
}

// SubVariables returns the ${...} variable names in an Fn::Sub format
// string. Escaped literals (${!Literal}) are ignored.
func SubVariables(format string) []string {
	var names []string
	for {
		start := strings.Index(format, "${")
		if start < 0 {
			return names
		}
		end := strings.Index(format[start:], "}")
		if end < 0 {
			return names
		}
		name := format[start+2 : start+end]
		if name != "" && !strings.HasPrefix(name, "!") {
			names = append(names, name)
		}
		format = format[start+end+1:]
	}
}
