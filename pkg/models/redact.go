/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"reflect"
	"strings"
)

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// FilterSensitiveFields converts a struct into a JSON-shaped map, dropping every
// field tagged `sensitive:"true"`.
func FilterSensitiveFields(input interface{}) (map[string]interface{}, error) {
	if input == nil {
		return map[string]interface{}{}, nil
	}

	switch out := filterValue(reflect.ValueOf(input)).(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return out, nil
	default:
		return nil, errNotStruct
	}
}

func filterValue(rv reflect.Value) interface{} {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}

		rv = rv.Elem()
	}

	if rv.Type().Implements(jsonMarshalerType) {
		return rv.Interface()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return filterStruct(rv)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}

		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = filterValue(rv.Index(i))
		}

		return out
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			if k, ok := iter.Key().Interface().(string); ok {
				out[k] = filterValue(iter.Value())
			}
		}

		return out
	default:
		return rv.Interface()
	}
}

func filterStruct(rv reflect.Value) map[string]interface{} {
	rt := rv.Type()
	out := make(map[string]interface{}, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() || field.Tag.Get("sensitive") == "true" {
			continue
		}

		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}

		if name == "" {
			name = field.Name
		}

		value := rv.Field(i)
		if strings.Contains(opts, "omitempty") && value.IsZero() {
			continue
		}

		out[name] = filterValue(value)
	}

	return out
}
