// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
)

// ChangeSummary describes the result of comparing two RunConfigs.
type ChangeSummary struct {
	ChangedFields []string // Field paths that changed
	ForceRequired bool     // True if any changed field affects training semantics
}

// reinitSafeFields are the only fields that may differ when re-initializing
// an existing run directory without -force. Everything else changes what the
// run would compute and therefore invalidates recorded artifacts.
var reinitSafeFields = map[string]struct{}{
	"Version":       {},
	"RunName":       {},
	"Logger":        {},
	"LoggerOptions": {},
}

// Diff compares two configurations and returns a summary of changes.
func Diff(old, next RunConfig) (ChangeSummary, error) {
	registry, err := GetRegistry()
	if err != nil {
		return ChangeSummary{}, err
	}

	summary := ChangeSummary{}

	oldVal := reflect.ValueOf(old)
	nextVal := reflect.ValueOf(next)

	summary.compareStruct("", oldVal, nextVal, registry)

	return summary, nil
}

func (s *ChangeSummary) compareStruct(prefix string, oldVal, nextVal reflect.Value, r *Registry) {
	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		fieldPath := f.Name
		if prefix != "" {
			fieldPath = prefix + "." + f.Name
		}

		ov := oldVal.Field(i)
		nv := nextVal.Field(i)

		// Handle pointers
		if ov.Kind() == reflect.Ptr {
			if ov.IsNil() && nv.IsNil() {
				continue
			}
			if ov.IsNil() != nv.IsNil() {
				s.recordChange(fieldPath, r)
				continue
			}
			ov = ov.Elem()
			nv = nv.Elem()
		}

		if ov.Kind() == reflect.Struct && !isSimpleStruct(ov.Type()) {
			s.compareStruct(fieldPath, ov, nv, r)
			continue
		}

		// Leaf field comparison with normalization
		oNorm := normalizeValue(ov)
		nNorm := normalizeValue(nv)
		if !reflect.DeepEqual(oNorm, nNorm) {
			s.recordChange(fieldPath, r)
		}
	}
}

func (s *ChangeSummary) recordChange(fieldPath string, r *Registry) {
	s.ChangedFields = append(s.ChangedFields, fieldPath)

	entry, ok := r.ByField[fieldPath]
	_, safe := reinitSafeFields[fieldPath]
	if !ok || !entry.Mutable || !safe {
		s.ForceRequired = true
	}
}

// normalizeValue returns a canonical representation for specific types.
// Empty and nil containers compare as equal; element order is preserved
// because hidden_sizes widths are positional.
func normalizeValue(v reflect.Value) any {
	if v.Kind() == reflect.Slice && v.Len() == 0 {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	if v.Kind() == reflect.Map && v.Len() == 0 {
		return reflect.MakeMap(v.Type()).Interface()
	}
	return v.Interface()
}
