// SPDX-License-Identifier: MIT

package config

// Clone returns an alias-free deep copy of RunConfig.
// Only reference types (maps/slices) are cloned; nested structs are copied by value.
func Clone(in RunConfig) RunConfig {
	out := in

	out.Model.HiddenSizes = cloneIntSlice(in.Model.HiddenSizes)
	out.LoggerOptions = cloneStringMap(in.LoggerOptions)

	return out
}

func cloneIntSlice(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
