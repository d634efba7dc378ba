// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"strings"
)

// sensitiveKeywords contains keywords that indicate sensitive fields.
// Any field name containing these keywords (case-insensitive) will be masked.
// Logger options in particular carry tracking-backend API keys.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"api_key",
	"credential",
	"auth",
}

// MaskSecrets recursively masks sensitive fields in the given data structure.
// It replaces values with "***" for keys matching sensitive keywords, and
// strips credentials embedded in URL values (s3://user:pass@bucket).
// Supports: strings, maps, slices, structs, pointers
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)

	// Dereference pointers
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.String:
		return MaskURL(val.String())

	case reflect.Map:
		result := make(map[string]any)
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			value := iter.Value().Interface()

			if isSensitiveKey(key) {
				result[key] = "***"
			} else {
				result[key] = MaskSecrets(value)
			}
		}
		return result

	case reflect.Slice, reflect.Array:
		length := val.Len()
		result := make([]any, length)
		for i := 0; i < length; i++ {
			result[i] = MaskSecrets(val.Index(i).Interface())
		}
		return result

	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue // Skip unexported fields
			}

			fieldValue := val.Field(i)
			fieldName := field.Name

			if isSensitiveKey(fieldName) {
				result[fieldName] = "***"
			} else {
				result[fieldName] = MaskSecrets(fieldValue.Interface())
			}
		}
		return result

	default:
		// For primitive types (int, bool, etc.), return as-is
		return data
	}
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

// MaskURL masks credentials in URLs (e.g. s3://user:pass@bucket -> s3://***@bucket).
// Strings without an embedded userinfo part are returned unchanged.
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if idx := strings.Index(rawURL, "@"); idx > 0 {
		if schemeIdx := strings.Index(rawURL, "://"); schemeIdx > 0 && schemeIdx < idx {
			scheme := rawURL[:schemeIdx+3] // Keep "s3://" or "https://"
			rest := rawURL[idx:]           // Keep "@host:port/path"
			return scheme + "***" + rest
		}
	}
	return rawURL
}
