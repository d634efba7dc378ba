// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Profile defines the operator persona for a configuration option.
type Profile string

const (
	ProfileSimple   Profile = "Simple"
	ProfileAdvanced Profile = "Advanced"
	ProfileInternal Profile = "Internal"
)

// Status defines the lifecycle state of a configuration option.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInternal Status = "Internal"
)

// ConfigEntry defines a single configuration option's metadata.
type ConfigEntry struct {
	Path      string  // User-facing path (e.g. "model.learning_rate")
	Env       string  // Environment variable (e.g. "METACURE_MODEL_LEARNING_RATE")
	FieldPath string  // Internal field path (e.g. "Model.LearningRate")
	Profile   Profile // Operator profile
	Status    Status  // Lifecycle status
	Default   any     // Default value
	Mutable   bool    // Safe to change when re-initializing an existing run directory
}

// Registry manages the configuration surface inventory.
type Registry struct {
	ByPath  map[string]ConfigEntry
	ByField map[string]ConfigEntry
	ByEnv   map[string]ConfigEntry
}

var (
	globalRegistry    *Registry
	globalRegistryErr error
	registryOnce      sync.Once
)

// GetRegistry returns the global configuration registry.
// It returns an error if the registry contains duplicates or is otherwise invalid.
// Thread-safe via sync.Once.
func GetRegistry() (*Registry, error) {
	registryOnce.Do(func() {
		globalRegistry, globalRegistryErr = buildRegistry()
	})
	return globalRegistry, globalRegistryErr
}

func buildRegistry() (*Registry, error) {
	r := &Registry{
		ByPath:  make(map[string]ConfigEntry),
		ByField: make(map[string]ConfigEntry),
		ByEnv:   make(map[string]ConfigEntry),
	}

	entries := []ConfigEntry{
		// --- RUN METADATA ---
		{Path: "experiment_name", Env: "METACURE_EXPERIMENT_NAME", FieldPath: "ExperimentName", Profile: ProfileSimple, Status: StatusActive},
		{Path: "run_name", Env: "METACURE_RUN_NAME", FieldPath: "RunName", Profile: ProfileSimple, Status: StatusActive, Mutable: true},
		{Path: "data_source", Env: "METACURE_DATA_SOURCE", FieldPath: "DataSource", Profile: ProfileSimple, Status: StatusActive},
		{Path: "save_dir", Env: "METACURE_SAVE_DIR", FieldPath: "SaveDir", Profile: ProfileSimple, Status: StatusActive, Default: "runs"},
		{Path: "logger", Env: "METACURE_LOGGER", FieldPath: "Logger", Profile: ProfileSimple, Status: StatusActive, Default: LoggerTensorBoard, Mutable: true},
		{Path: "logger_options", Env: "METACURE_LOGGER_OPTIONS", FieldPath: "LoggerOptions", Profile: ProfileAdvanced, Status: StatusActive, Mutable: true},
		{Path: "tune_metric", Env: "METACURE_TUNE_METRIC", FieldPath: "TuneMetric", Profile: ProfileAdvanced, Status: StatusActive, Default: "val_loss"},
		{Path: "tune_objective", Env: "METACURE_TUNE_OBJECTIVE", FieldPath: "TuneObjective", Profile: ProfileAdvanced, Status: StatusActive, Default: ObjectiveMinimize},
		{Path: "seed", Env: "METACURE_SEED", FieldPath: "Seed", Profile: ProfileSimple, Status: StatusActive, Default: 42},

		// --- TRAINER ---
		{Path: "trainer.max_epochs", Env: "METACURE_TRAINER_MAX_EPOCHS", FieldPath: "Trainer.MaxEpochs", Profile: ProfileSimple, Status: StatusActive, Default: 100},
		{Path: "trainer.accelerator", Env: "METACURE_TRAINER_ACCELERATOR", FieldPath: "Trainer.Accelerator", Profile: ProfileSimple, Status: StatusActive, Default: "auto"},
		{Path: "trainer.devices", Env: "METACURE_TRAINER_DEVICES", FieldPath: "Trainer.Devices", Profile: ProfileAdvanced, Status: StatusActive, Default: 1},
		{Path: "trainer.precision", Env: "METACURE_TRAINER_PRECISION", FieldPath: "Trainer.Precision", Profile: ProfileAdvanced, Status: StatusActive, Default: "32-true"},
		{Path: "trainer.gradient_clip_val", Env: "METACURE_TRAINER_GRADIENT_CLIP_VAL", FieldPath: "Trainer.GradientClipVal", Profile: ProfileAdvanced, Status: StatusActive, Default: 0.0},
		{Path: "trainer.log_every_n_steps", Env: "METACURE_TRAINER_LOG_EVERY_N_STEPS", FieldPath: "Trainer.LogEveryNSteps", Profile: ProfileAdvanced, Status: StatusActive, Default: 50},
		{Path: "trainer.deterministic", Env: "METACURE_TRAINER_DETERMINISTIC", FieldPath: "Trainer.Deterministic", Profile: ProfileAdvanced, Status: StatusActive, Default: false},

		// --- DATA MODULE ---
		{Path: "data_module.target", Env: "METACURE_DATA_TARGET", FieldPath: "Data.Target", Profile: ProfileAdvanced, Status: StatusActive, Default: "metacure.data.HDF5DataModule"},
		{Path: "data_module.batch_size", Env: "METACURE_DATA_BATCH_SIZE", FieldPath: "Data.BatchSize", Profile: ProfileSimple, Status: StatusActive, Default: 128},
		{Path: "data_module.num_workers", Env: "METACURE_DATA_NUM_WORKERS", FieldPath: "Data.NumWorkers", Profile: ProfileAdvanced, Status: StatusActive, Default: 4},
		{Path: "data_module.train_fraction", Env: "METACURE_DATA_TRAIN_FRACTION", FieldPath: "Data.TrainFraction", Profile: ProfileAdvanced, Status: StatusActive, Default: 0.9},
		{Path: "data_module.val_fraction", Env: "METACURE_DATA_VAL_FRACTION", FieldPath: "Data.ValFraction", Profile: ProfileAdvanced, Status: StatusActive, Default: 0.1},
		{Path: "data_module.shuffle", Env: "METACURE_DATA_SHUFFLE", FieldPath: "Data.Shuffle", Profile: ProfileAdvanced, Status: StatusActive, Default: true},
		{Path: "data_module.pin_memory", Env: "METACURE_DATA_PIN_MEMORY", FieldPath: "Data.PinMemory", Profile: ProfileAdvanced, Status: StatusActive, Default: false},

		// --- EARLY STOPPING ---
		{Path: "early_stopping.enabled", Env: "METACURE_EARLY_STOPPING_ENABLED", FieldPath: "EarlyStopping.Enabled", Profile: ProfileSimple, Status: StatusActive, Default: true},
		{Path: "early_stopping.monitor", Env: "METACURE_EARLY_STOPPING_MONITOR", FieldPath: "EarlyStopping.Monitor", Profile: ProfileSimple, Status: StatusActive, Default: "val_loss"},
		{Path: "early_stopping.patience", Env: "METACURE_EARLY_STOPPING_PATIENCE", FieldPath: "EarlyStopping.Patience", Profile: ProfileSimple, Status: StatusActive, Default: 10},
		{Path: "early_stopping.min_delta", Env: "METACURE_EARLY_STOPPING_MIN_DELTA", FieldPath: "EarlyStopping.MinDelta", Profile: ProfileAdvanced, Status: StatusActive, Default: 0.0},
		{Path: "early_stopping.mode", Env: "METACURE_EARLY_STOPPING_MODE", FieldPath: "EarlyStopping.Mode", Profile: ProfileAdvanced, Status: StatusActive, Default: "min"},

		// --- MODEL ---
		{Path: "model.target", Env: "METACURE_MODEL_TARGET", FieldPath: "Model.Target", Profile: ProfileAdvanced, Status: StatusActive, Default: "metacure.models.MLPRegressor"},
		{Path: "model.hidden_sizes", Env: "METACURE_MODEL_HIDDEN_SIZES", FieldPath: "Model.HiddenSizes", Profile: ProfileSimple, Status: StatusActive, Default: []int{256, 256}},
		{Path: "model.activation", Env: "METACURE_MODEL_ACTIVATION", FieldPath: "Model.Activation", Profile: ProfileSimple, Status: StatusActive, Default: "relu"},
		{Path: "model.dropout", Env: "METACURE_MODEL_DROPOUT", FieldPath: "Model.Dropout", Profile: ProfileSimple, Status: StatusActive, Default: 0.0},
		{Path: "model.output_dim", Env: "METACURE_MODEL_OUTPUT_DIM", FieldPath: "Model.OutputDim", Profile: ProfileAdvanced, Status: StatusActive, Default: 1},
		{Path: "model.optimizer", Env: "METACURE_MODEL_OPTIMIZER", FieldPath: "Model.Optimizer", Profile: ProfileSimple, Status: StatusActive, Default: "adam"},
		{Path: "model.learning_rate", Env: "METACURE_MODEL_LEARNING_RATE", FieldPath: "Model.LearningRate", Profile: ProfileSimple, Status: StatusActive, Default: 0.001},
		{Path: "model.weight_decay", Env: "METACURE_MODEL_WEIGHT_DECAY", FieldPath: "Model.WeightDecay", Profile: ProfileAdvanced, Status: StatusActive, Default: 0.0},

		// --- INTERNAL ---
		{FieldPath: "Version", Profile: ProfileInternal, Status: StatusInternal, Mutable: true},
	}

	for _, e := range entries {
		if e.Path != "" {
			if _, dup := r.ByPath[e.Path]; dup {
				return nil, fmt.Errorf("duplicate registry path: %s", e.Path)
			}
			r.ByPath[e.Path] = e
		}
		if e.FieldPath != "" {
			if _, dup := r.ByField[e.FieldPath]; dup {
				return nil, fmt.Errorf("duplicate registry field: %s", e.FieldPath)
			}
			r.ByField[e.FieldPath] = e
		}
		if e.Env != "" {
			if _, dup := r.ByEnv[e.Env]; dup {
				return nil, fmt.Errorf("duplicate registry env: %s", e.Env)
			}
			r.ByEnv[e.Env] = e
		}
	}

	return r, nil
}

// ValidateFieldCoverage uses reflection to ensure every field in RunConfig is registered.
func (r *Registry) ValidateFieldCoverage(cfg RunConfig) error {
	t := reflect.TypeOf(cfg)
	return r.validateStruct("", t)
}

func (r *Registry) validateStruct(prefix string, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		fieldPath := f.Name
		if prefix != "" {
			fieldPath = prefix + "." + f.Name
		}

		fieldType := f.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}

		// If it's a nested struct (and not a primitive-like type), recurse
		if fieldType.Kind() == reflect.Struct && !isSimpleStruct(fieldType) {
			if err := r.validateStruct(fieldPath, fieldType); err != nil {
				return err
			}
			continue
		}

		// Check if registered
		if _, ok := r.ByField[fieldPath]; !ok {
			return fmt.Errorf("field %q is not registered in the config registry", fieldPath)
		}
	}
	return nil
}

// ApplyDefaults applies registered default values to the given RunConfig.
// Returns an error if any default cannot be set (indicates registry misconfiguration).
func (r *Registry) ApplyDefaults(cfg *RunConfig) error {
	v := reflect.ValueOf(cfg).Elem()
	for _, entry := range r.ByField {
		if entry.Default == nil {
			continue
		}

		if err := setField(v, entry.FieldPath, entry.Default); err != nil {
			return fmt.Errorf("failed to set default for %s: %w", entry.FieldPath, err)
		}
	}
	return nil
}

func setField(v reflect.Value, fieldPath string, value any) error {
	parts := strings.Split(fieldPath, ".")
	curr := v
	for i, p := range parts {
		if curr.Kind() == reflect.Ptr {
			if curr.IsNil() {
				// Initialize pointer if it's a struct we need to go into
				curr.Set(reflect.New(curr.Type().Elem()))
			}
			curr = curr.Elem()
		}

		f := curr.FieldByName(p)
		if !f.IsValid() {
			return fmt.Errorf("field %s not found", p)
		}

		if i == len(parts)-1 {
			// Last part, set the value
			val := reflect.ValueOf(value)

			// Handle assignment to pointer leaf
			if f.Kind() == reflect.Ptr && val.Kind() != reflect.Ptr {
				// Only set default if pointer is nil (unset). A non-nil
				// pointer was set explicitly, possibly to a zero value,
				// and must not be overwritten.
				if !f.IsNil() {
					return nil
				}

				f.Set(reflect.New(f.Type().Elem()))

				elem := f.Elem()
				if elem.Type() != val.Type() {
					if val.Type().ConvertibleTo(elem.Type()) {
						elem.Set(val.Convert(elem.Type()))
					} else {
						return fmt.Errorf("type mismatch for %s (elem): expected %v, got %v", fieldPath, elem.Type(), val.Type())
					}
				} else {
					elem.Set(val)
				}
				return nil
			}

			// Slice defaults are copied so callers cannot mutate registry state.
			if val.Kind() == reflect.Slice && f.Kind() == reflect.Slice && val.Type() == f.Type() {
				cp := reflect.MakeSlice(f.Type(), val.Len(), val.Len())
				reflect.Copy(cp, val)
				f.Set(cp)
				return nil
			}

			if f.Type() != val.Type() {
				// Try to convert if possible (e.g. int to int64)
				if val.Type().ConvertibleTo(f.Type()) {
					f.Set(val.Convert(f.Type()))
				} else {
					return fmt.Errorf("type mismatch for %s: expected %v, got %v", fieldPath, f.Type(), val.Type())
				}
			} else {
				f.Set(val)
			}
			return nil
		}
		curr = f
	}
	return nil
}

func isSimpleStruct(t reflect.Type) bool {
	// Types treated as leaves even though they are structs (e.g. time.Duration, time.Time)
	path := t.PkgPath()
	name := t.Name()
	return path == "time" && (name == "Duration" || name == "Time")
}
