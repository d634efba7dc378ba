// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Flatten returns every registry-known option of cfg keyed by its YAML path
// (e.g. "trainer.max_epochs"). Run metadata records this map so a run's
// hyperparameters are queryable without re-parsing its config file. Slice
// and map values are copied.
func Flatten(cfg RunConfig) (map[string]any, error) {
	registry, err := GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("get registry: %w", err)
	}

	out := make(map[string]any, len(registry.ByPath))
	root := reflect.ValueOf(cfg)
	for path, entry := range registry.ByPath {
		val, err := fieldByPath(root, entry.FieldPath)
		if err != nil {
			return nil, fmt.Errorf("flatten %s: %w", path, err)
		}
		out[path] = val
	}
	return out, nil
}

func fieldByPath(root reflect.Value, fieldPath string) (any, error) {
	curr := root
	for _, part := range strings.Split(fieldPath, ".") {
		if curr.Kind() == reflect.Ptr {
			if curr.IsNil() {
				return nil, nil
			}
			curr = curr.Elem()
		}
		f := curr.FieldByName(part)
		if !f.IsValid() {
			return nil, fmt.Errorf("field %q not found", part)
		}
		curr = f
	}

	switch curr.Kind() {
	case reflect.Slice:
		cp := reflect.MakeSlice(curr.Type(), curr.Len(), curr.Len())
		reflect.Copy(cp, curr)
		return cp.Interface(), nil
	case reflect.Map:
		cp := reflect.MakeMapWithSize(curr.Type(), curr.Len())
		iter := curr.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface(), nil
	default:
		return curr.Interface(), nil
	}
}
