package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates expands ${VAR} references in place in the struct (or slice)
// pointed to by in.
//
// String, *string and []string fields are expanded only when they carry a
// `template` struct tag. map[string]string fields are always expanded. Nested
// structs, pointers to structs and slices of either are walked regardless of
// tags. `template:"-"` excludes a field and everything below it. Errors from
// every field are collected and prefixed with the field's path.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}

	v := reflect.ValueOf(in).Elem()
	switch v.Kind() {
	case reflect.Struct, reflect.Slice:
		return expandValue(v, "", true, variables)
	default:
		return fmt.Errorf("ExpandTemplates expects *struct or *[]struct; got *%s", v.Type())
	}
}

func expandValue(v reflect.Value, path string, tagged bool, variables map[string]string) error {
	switch v.Kind() {
	case reflect.String:
		if !tagged {
			return nil
		}
		expanded, err := Expand(v.String(), variables)
		if err != nil {
			return withPath(path, err)
		}
		v.SetString(expanded)
		return nil

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		elem := v.Elem()
		if elem.Kind() == reflect.String {
			if !tagged {
				return nil
			}
			// replace rather than mutate: the pointee may be shared
			expanded, err := Expand(elem.String(), variables)
			if err != nil {
				return withPath(path, err)
			}
			v.Set(reflect.ValueOf(&expanded).Convert(v.Type()))
			return nil
		}
		if elem.Kind() != reflect.Struct {
			return nil
		}
		return expandValue(elem, path, tagged, variables)

	case reflect.Struct:
		var errs error
		typ := v.Type()
		for i := range typ.NumField() {
			sf := typ.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag, hasTag := sf.Tag.Lookup("template")
			if tag == "-" {
				continue
			}
			errs = errors.Join(errs, expandValue(v.Field(i), joinPath(path, sf.Name), hasTag, variables))
		}
		return errs

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		var errs error
		for i := range v.Len() {
			errs = errors.Join(errs, expandValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i), tagged, variables))
		}
		return errs

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		expanded, err := ExpandMap(v.Interface().(map[string]string), variables)
		if err != nil {
			return withPath(path, err)
		}
		v.Set(reflect.ValueOf(expanded).Convert(v.Type()))
		return nil

	default:
		return nil
	}
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func withPath(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}

// Expand replaces ${VAR} references in value using variables. Every
// reference to a variable that is not in the map is reported.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// ExpandMap expands every value of values. A nil map stays nil.
func ExpandMap(values map[string]string, variables map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	result := make(map[string]string, len(values))
	var errs error

	for k, v := range values {
		expanded, err := Expand(v, variables)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		result[k] = expanded
	}

	if errs != nil {
		return nil, errs
	}

	return result, nil
}
