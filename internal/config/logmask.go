// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net/url"
	"reflect"
	"strings"
	"time"
)

const maskedValue = "***"

var durationType = reflect.TypeOf(time.Duration(0))

// sensitiveKeywords mark keys whose values never leave the process.
// Matching is case-insensitive on YAML keys, field names and env names.
var sensitiveKeywords = []string{
	"password",
	"secret",
	"token",
	"account_key",
	"accountkey",
	"credential",
}

// MaskSecrets returns a generic view of data with sensitive values
// replaced. Structs become maps keyed by their YAML names so the result
// can be dumped with the same keys the operator writes. Empty secrets stay
// empty so a dump still shows what is unset.
func MaskSecrets(data any) any {
	return maskValue(reflect.ValueOf(data))
}

func maskValue(val reflect.Value) any {
	if !val.IsValid() {
		return nil
	}
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		out := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			out[key] = maskField(key, iter.Value())
		}
		return out

	case reflect.Slice, reflect.Array:
		out := make([]any, val.Len())
		for i := range out {
			out[i] = maskValue(val.Index(i))
		}
		return out

	case reflect.Struct:
		out := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := yamlName(field)
			if name == "-" {
				continue
			}
			out[name] = maskField(name, val.Field(i))
		}
		return out

	default:
		if val.Type() == durationType {
			return time.Duration(val.Int()).String()
		}
		return val.Interface()
	}
}

func maskField(key string, val reflect.Value) any {
	if isSensitiveKey(key) {
		if val.Kind() == reflect.String && val.String() == "" {
			return ""
		}
		return maskedValue
	}
	if val.Kind() == reflect.String && strings.Contains(strings.ToLower(key), "url") {
		return MaskURL(val.String())
	}
	return maskValue(val)
}

func yamlName(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isSensitiveKey checks if a key name contains any sensitive keyword.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}

// MaskURL hides userinfo and signature query values in URLs, e.g. SAS
// locator paths or redis URLs with a password.
func MaskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if q := u.Query(); q.Has("sig") {
		q.Set("sig", maskedValue)
		u.RawQuery = q.Encode()
	}
	if u.User == nil {
		return u.String()
	}
	u.User = nil
	return strings.Replace(u.String(), "://", "://"+maskedValue+"@", 1)
}
