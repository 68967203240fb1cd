package binder

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// structOf returns the struct v points to.
func structOf(v any, bindErr error) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}
	return rv, nil
}

// tagName returns the parameter name of a field. Untagged fields and "-"
// are skipped.
func tagName(sf reflect.StructField, tag string) (string, bool) {
	t := sf.Tag.Get(tag)
	if t == "" || t == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(t, ",")
	return name, name != ""
}

func eachTagged(v any, tag string, bindErr error, fn func(name string)) error {
	rv, err := structOf(v, bindErr)
	if err != nil {
		return err
	}
	rt := rv.Type()
	for i := range rv.NumField() {
		if name, ok := tagName(rt.Field(i), tag); ok && rv.Field(i).CanSet() {
			fn(name)
		}
	}
	return nil
}

// bindToStruct sets every field tagged with tag from values.
func bindToStruct(v any, tag string, values map[string][]string, bindErr error) error {
	rv, err := structOf(v, bindErr)
	if err != nil {
		return err
	}
	rt := rv.Type()
	for i := range rv.NumField() {
		field, sf := rv.Field(i), rt.Field(i)
		name, ok := tagName(sf, tag)
		if !ok || !field.CanSet() {
			continue
		}
		vals := values[name]
		if len(vals) == 0 {
			continue
		}
		if err := setFieldValue(field, sf.Type, vals); err != nil {
			return fmt.Errorf("%w: %s: %v", bindErr, name, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, typ reflect.Type, values []string) error {
	switch typ.Kind() {
	case reflect.Pointer:
		if field.IsNil() {
			field.Set(reflect.New(typ.Elem()))
		}
		return setFieldValue(field.Elem(), typ.Elem(), values)
	case reflect.Slice:
		return setSliceValue(field, typ, values)
	}

	value := strings.TrimSpace(values[0])
	switch typ.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, typ.Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", value)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, typ.Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", value)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, typ.Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", value)
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s", typ.Kind())
	}
	return nil
}

func parseBool(value string) (bool, error) {
	if b, err := strconv.ParseBool(value); err == nil {
		return b, nil
	}
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool value %q", value)
}

// setSliceValue accepts repeated parameters and comma-separated lists.
func setSliceValue(field reflect.Value, typ reflect.Type, values []string) error {
	var all []string
	for _, v := range values {
		all = append(all, strings.Split(v, ",")...)
	}
	slice := reflect.MakeSlice(typ, len(all), len(all))
	for i, v := range all {
		if err := setFieldValue(slice.Index(i), typ.Elem(), []string{v}); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}
