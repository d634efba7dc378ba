// SPDX-License-Identifier: MIT

// configgen regenerates the documentation artifacts derived from the
// config registry: the options tables in docs/CONFIGURATION.md, the
// defaults in docs/config.schema.json and config.example.yaml.
//
// With -check it verifies the artifacts are current instead of writing,
// so CI can fail when the registry and the docs drift apart.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
)

const (
	configDocPath     = "docs/CONFIGURATION.md"
	configSchemaPath  = "docs/config.schema.json"
	configExamplePath = "config.example.yaml"
)

const (
	docBeginMarker = "<!-- BEGIN GENERATED CONFIG OPTIONS -->"
	docEndMarker   = "<!-- END GENERATED CONFIG OPTIONS -->"
)

func main() {
	check := flag.Bool("check", false, "verify generated files are current instead of writing")
	allowCreate := flag.Bool("allow-create", false, "allow creating new schema nodes")
	flag.Parse()

	root, err := os.Getwd()
	if err != nil {
		fail(err)
	}

	registry, err := config.GetRegistry()
	if err != nil {
		fail(fmt.Errorf("get registry: %w", err))
	}
	entries := registryEntries(registry)

	var stale []string
	apply := func(rel string, render func() ([]byte, error)) {
		data, err := render()
		if err != nil {
			fail(err)
		}
		path := filepath.Join(root, rel)
		if *check {
			current, err := os.ReadFile(path)
			if err != nil || !bytes.Equal(current, data) {
				stale = append(stale, rel)
			}
			return
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			fail(fmt.Errorf("write %s: %w", rel, err))
		}
	}

	apply(configDocPath, func() ([]byte, error) { return renderConfigDoc(root, entries) })
	apply(configSchemaPath, func() ([]byte, error) { return renderSchema(root, entries, *allowCreate) })
	apply(configExamplePath, func() ([]byte, error) { return renderExample(entries) })

	if *check && len(stale) > 0 {
		fmt.Fprintf(os.Stderr, "configgen: generated files are stale, re-run configgen: %s\n", strings.Join(stale, ", "))
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
	os.Exit(1)
}

func registryEntries(reg *config.Registry) []config.ConfigEntry {
	entries := make([]config.ConfigEntry, 0, len(reg.ByPath))
	for _, entry := range reg.ByPath {
		if entry.Path == "" {
			continue
		}
		if entry.Status == config.StatusInternal {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// docSkeleton seeds docs/CONFIGURATION.md on a fresh checkout; afterwards
// only the section between the markers is rewritten.
const docSkeleton = `# Configuration

Run configs are YAML documents validated against a strict schema.
Precedence: defaults < file < ` + "`METACURE_*`" + ` environment overrides.

` + docBeginMarker + `
` + docEndMarker + `
`

func renderConfigDoc(root string, entries []config.ConfigEntry) ([]byte, error) {
	path := filepath.Join(root, configDocPath)
	// #nosec G304 -- CLI tool operating on its own repository
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		raw = []byte(docSkeleton)
	} else if err != nil {
		return nil, fmt.Errorf("read config doc: %w", err)
	}

	generated := buildConfigDoc(entries)
	out, err := replaceGeneratedSection(string(raw), generated)
	if err != nil {
		return nil, fmt.Errorf("update config doc: %w", err)
	}
	return []byte(out), nil
}

func buildConfigDoc(entries []config.ConfigEntry) string {
	grouped := make(map[string][]config.ConfigEntry)
	for _, entry := range entries {
		group := entry.Path
		if idx := strings.Index(group, "."); idx != -1 {
			group = group[:idx]
		} else {
			group = "root"
		}
		grouped[group] = append(grouped[group], entry)
	}

	groups := make([]string, 0, len(grouped))
	for group := range grouped {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	var b strings.Builder
	b.WriteString(docBeginMarker)
	b.WriteString("\n## Registry Options (Generated)\n\n")
	b.WriteString("This section is generated from `internal/config/registry.go`. Do not edit by hand.\n\n")

	for _, group := range groups {
		entries := grouped[group]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		b.WriteString(fmt.Sprintf("### %s\n\n", group))
		b.WriteString("| Path | Env | Default | Profile | Mutable |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, entry := range entries {
			env := "-"
			if entry.Env != "" {
				env = fmt.Sprintf("`%s`", entry.Env)
			}
			def := "-"
			if entry.Default != nil {
				def = fmt.Sprintf("`%s`", formatDefault(entry.Default))
			}
			mutable := "no"
			if entry.Mutable {
				mutable = "yes"
			}
			b.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s | %s |\n",
				entry.Path, env, def, entry.Profile, mutable))
		}
		b.WriteString("\n")
	}
	b.WriteString(docEndMarker)
	return b.String()
}

func replaceGeneratedSection(content string, generated string) (string, error) {
	start := strings.Index(content, docBeginMarker)
	end := strings.Index(content, docEndMarker)
	if start == -1 || end == -1 || end < start {
		return content + "\n\n" + generated + "\n", nil
	}
	end += len(docEndMarker)
	return content[:start] + generated + content[end:], nil
}

func renderSchema(root string, entries []config.ConfigEntry, allowCreate bool) ([]byte, error) {
	path := filepath.Join(root, configSchemaPath)
	// #nosec G304 -- CLI tool operating on its own repository
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && allowCreate {
		raw = []byte(`{"$schema":"http://json-schema.org/draft-07/schema#","title":"MetaCURE run config","type":"object","properties":{}}`)
	} else if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	for _, entry := range entries {
		if err := setSchemaDefault(schema, entry, allowCreate); err != nil {
			return nil, err
		}
	}

	// encoding/json sorts map keys, so output is deterministic.
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(out, '\n'), nil
}

func setSchemaDefault(schema map[string]any, entry config.ConfigEntry, allowCreate bool) error {
	path := entry.Path
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	schemaType := schemaTypeForEntry(entry)
	curr := schema
	for i, part := range parts {
		props, ok := curr["properties"].(map[string]any)
		if !ok {
			if !allowCreate {
				return fmt.Errorf("schema missing properties for %q (path: %s)", part, path)
			}
			props = map[string]any{}
			curr["properties"] = props
		}
		prop, ok := props[part].(map[string]any)
		if !ok {
			if !allowCreate {
				return fmt.Errorf("schema missing property %q (path: %s)", part, path)
			}
			prop = map[string]any{}
			props[part] = prop
		}
		if i == len(parts)-1 {
			if _, ok := prop["type"]; !ok && schemaType != "" {
				prop["type"] = schemaType
			}
			if schemaType == "array" {
				if _, ok := prop["items"]; !ok {
					prop["items"] = schemaItemsForEntry(entry)
				}
			}
			if entry.Default != nil {
				prop["default"] = entry.Default
			}
			return nil
		}
		if _, ok := prop["type"]; !ok {
			prop["type"] = "object"
		}
		if _, ok := prop["properties"]; !ok {
			prop["properties"] = map[string]any{}
		}
		curr = prop
	}
	return nil
}

// exampleFallbacks fill required paths that have no registry default so
// the generated example validates as-is.
var exampleFallbacks = map[string]any{
	"experiment_name": "point-robot",
	"data_source":     "data/point_robot.h5",
}

// exampleKeyOrder fixes the top-level layout of config.example.yaml:
// identity fields first, then the nested sections.
var exampleKeyOrder = []string{
	"experiment_name", "run_name", "data_source", "save_dir",
	"logger", "logger_options", "tune_metric", "tune_objective", "seed",
	"trainer", "data_module", "early_stopping", "model",
}

// exampleComments annotate the top-level keys of config.example.yaml.
var exampleComments = map[string]string{
	"experiment_name": "Experiment this run belongs to (required).",
	"run_name":        "Optional; a unique name is generated when empty.",
	"data_source":     "Dataset location: local path or s3/gs/http(s) URL (required).",
	"save_dir":        "Run directories are created under <save_dir>/<experiment>/<run-id>.",
	"logger":          "One of: tensorboard, csv, wandb, none.",
	"logger_options":  "Logger-specific options; secret values are masked in logs and the API.",
	"tune_metric":     "Metric reported to the tuner.",
	"tune_objective":  "minimize or maximize.",
	"seed":            "Global RNG seed.",
	"trainer":         "Training loop settings.",
	"data_module":     "Dataset loading and splitting.",
	"early_stopping":  "Stop training when the monitored metric stalls.",
	"model":           "Architecture and optimizer settings.",
}

func renderExample(entries []config.ConfigEntry) ([]byte, error) {
	ordered := make([]config.ConfigEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := exampleRank(ordered[i].Path), exampleRank(ordered[j].Path)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].Path < ordered[j].Path
	})

	var rootNode yaml.Node
	rootNode.Kind = yaml.MappingNode
	rootNode.HeadComment = "yaml-language-server: $schema=./docs/config.schema.json\nGenerated from internal/config/registry.go. Do not edit by hand."

	for _, entry := range ordered {
		setYamlValue(&rootNode, strings.Split(entry.Path, "."), exampleValueNode(entry))
	}
	applyExampleComments(&rootNode)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&rootNode); err != nil {
		return nil, fmt.Errorf("encode example: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode example: %w", err)
	}
	return buf.Bytes(), nil
}

func exampleValueNode(entry config.ConfigEntry) *yaml.Node {
	if entry.Default != nil {
		return yamlNodeForValue(entry.Default)
	}
	if fallback, ok := exampleFallbacks[entry.Path]; ok {
		return yamlNodeForValue(fallback)
	}
	return zeroValueNode(schemaTypeForEntry(entry))
}

func exampleRank(path string) int {
	key := path
	if idx := strings.Index(key, "."); idx != -1 {
		key = key[:idx]
	}
	for i, k := range exampleKeyOrder {
		if k == key {
			return i
		}
	}
	return len(exampleKeyOrder)
}

func applyExampleComments(node *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if comment, ok := exampleComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}
}

func setYamlValue(node *yaml.Node, path []string, value *yaml.Node) {
	if node.Kind != yaml.MappingNode || len(path) == 0 {
		return
	}
	for i := 0; i < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		if keyNode.Value != path[0] {
			continue
		}
		if len(path) == 1 {
			node.Content[i+1] = value
			return
		}
		if valNode.Kind != yaml.MappingNode {
			valNode.Kind = yaml.MappingNode
			valNode.Content = nil
			valNode.Tag = ""
		}
		setYamlValue(valNode, path[1:], value)
		return
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: path[0]}
	var valNode *yaml.Node
	if len(path) == 1 {
		valNode = value
	} else {
		valNode = &yaml.Node{Kind: yaml.MappingNode}
		setYamlValue(valNode, path[1:], value)
	}
	node.Content = append(node.Content, keyNode, valNode)
}

func yamlNodeForValue(def any) *yaml.Node {
	if def == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
	}
	rv := reflect.ValueOf(def)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for i := 0; i < rv.Len(); i++ {
			seq.Content = append(seq.Content, yamlNodeForValue(rv.Index(i).Interface()))
		}
		return seq
	case reflect.Map:
		return &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	}
	value, tag := yamlScalar(def)
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlScalar(def any) (string, string) {
	switch v := def.(type) {
	case string:
		return v, "!!str"
	case bool:
		return fmt.Sprintf("%t", v), "!!bool"
	case int:
		return fmt.Sprintf("%d", v), "!!int"
	case int64:
		return fmt.Sprintf("%d", v), "!!int"
	case float32:
		return yamlFloatString(float64(v)), "!!float"
	case float64:
		return yamlFloatString(v), "!!float"
	default:
		return fmt.Sprintf("%v", v), "!!str"
	}
}

// yamlFloatString keeps float scalars implicitly typed: without a decimal
// point the emitter has to write an explicit !!float tag.
func yamlFloatString(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func zeroValueNode(kind string) *yaml.Node {
	switch kind {
	case "boolean":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}
	case "integer":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: "0"}
	case "number":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "0.0"}
	case "array":
		return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	case "object":
		return &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
	}
}

func schemaTypeForEntry(entry config.ConfigEntry) string {
	if entry.Default != nil {
		return schemaTypeFromDefault(entry.Default)
	}
	if entry.FieldPath == "" {
		return "string"
	}
	t, ok := resolveFieldType(entry.FieldPath)
	if !ok {
		return "string"
	}
	return schemaTypeFromReflect(t)
}

func schemaTypeFromDefault(def any) string {
	switch def.(type) {
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64, float32:
		return "number"
	case []int, []string:
		return "array"
	default:
		return "string"
	}
}

func schemaTypeFromReflect(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

func schemaItemsForEntry(entry config.ConfigEntry) map[string]any {
	if entry.Default != nil {
		if t := reflect.TypeOf(entry.Default); t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
			return map[string]any{"type": schemaTypeFromReflect(t.Elem())}
		}
	}
	if entry.FieldPath == "" {
		return map[string]any{"type": "string"}
	}
	t, ok := resolveFieldType(entry.FieldPath)
	if !ok {
		return map[string]any{"type": "string"}
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		return map[string]any{"type": schemaTypeFromReflect(t.Elem())}
	}
	return map[string]any{"type": "string"}
}

func resolveFieldType(path string) (reflect.Type, bool) {
	cfgType := reflect.TypeOf(config.RunConfig{})
	parts := strings.Split(path, ".")
	curr := cfgType
	for _, part := range parts {
		if curr.Kind() == reflect.Ptr {
			curr = curr.Elem()
		}
		field, ok := curr.FieldByName(part)
		if !ok {
			return nil, false
		}
		curr = field.Type
	}
	return curr, true
}

func formatDefault(def any) string {
	switch v := def.(type) {
	case string:
		if v == "" {
			return "\"\""
		}
		return v
	default:
		return fmt.Sprintf("%v", def)
	}
}
