// SPDX-License-Identifier: MIT

package config

import "fmt"

// Logger backends accepted by the `logger` field.
const (
	LoggerTensorBoard = "tensorboard"
	LoggerCSV         = "csv"
	LoggerWandB       = "wandb"
	LoggerNone        = "none"
)

// Tuning objectives accepted by the `tune_objective` field.
const (
	ObjectiveMinimize = "minimize"
	ObjectiveMaximize = "maximize"
)

// FileConfig represents the YAML configuration structure.
// Leaf fields are pointers so an explicit zero ("dropout: 0.0",
// "shuffle: false") is distinguishable from an absent key during merging.
type FileConfig struct {
	ExperimentName *string           `yaml:"experiment_name,omitempty"`
	RunName        *string           `yaml:"run_name,omitempty"`
	DataSource     *string           `yaml:"data_source,omitempty"`
	SaveDir        *string           `yaml:"save_dir,omitempty"`
	Logger         *string           `yaml:"logger,omitempty"`
	LoggerOptions  map[string]string `yaml:"logger_options,omitempty"`
	TuneMetric     *string           `yaml:"tune_metric,omitempty"`
	TuneObjective  *string           `yaml:"tune_objective,omitempty"`
	Seed           *int              `yaml:"seed,omitempty"`

	Trainer       TrainerFile       `yaml:"trainer,omitempty"`
	DataModule    DataModuleFile    `yaml:"data_module,omitempty"`
	EarlyStopping EarlyStoppingFile `yaml:"early_stopping,omitempty"`
	Model         ModelFile         `yaml:"model,omitempty"`

	// Deprecated: use save_dir. Accepted so strict parsing does not break
	// configs written before the rename.
	LogDir *string `yaml:"log_dir,omitempty"`
}

// TrainerFile holds the `trainer` section of a config file.
type TrainerFile struct {
	MaxEpochs       *int     `yaml:"max_epochs,omitempty"`
	Accelerator     *string  `yaml:"accelerator,omitempty"`
	Devices         *int     `yaml:"devices,omitempty"`
	Precision       *string  `yaml:"precision,omitempty"`
	GradientClipVal *float64 `yaml:"gradient_clip_val,omitempty"`
	LogEveryNSteps  *int     `yaml:"log_every_n_steps,omitempty"`
	Deterministic   *bool    `yaml:"deterministic,omitempty"`
}

// DataModuleFile holds the `data_module` section of a config file.
type DataModuleFile struct {
	Target        *string  `yaml:"target,omitempty"`
	BatchSize     *int     `yaml:"batch_size,omitempty"`
	NumWorkers    *int     `yaml:"num_workers,omitempty"`
	TrainFraction *float64 `yaml:"train_fraction,omitempty"`
	ValFraction   *float64 `yaml:"val_fraction,omitempty"`
	Shuffle       *bool    `yaml:"shuffle,omitempty"`
	PinMemory     *bool    `yaml:"pin_memory,omitempty"`

	// Deprecated: use val_fraction.
	ValSplit *float64 `yaml:"val_split,omitempty"`
}

// EarlyStoppingFile holds the `early_stopping` section of a config file.
type EarlyStoppingFile struct {
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Monitor  *string  `yaml:"monitor,omitempty"`
	Patience *int     `yaml:"patience,omitempty"`
	MinDelta *float64 `yaml:"min_delta,omitempty"`
	Mode     *string  `yaml:"mode,omitempty"`
}

// ModelFile holds the `model` section of a config file.
type ModelFile struct {
	Target       *string  `yaml:"target,omitempty"`
	HiddenSizes  []int    `yaml:"hidden_sizes,omitempty"`
	Activation   *string  `yaml:"activation,omitempty"`
	Dropout      *float64 `yaml:"dropout,omitempty"`
	OutputDim    *int     `yaml:"output_dim,omitempty"`
	Optimizer    *string  `yaml:"optimizer,omitempty"`
	LearningRate *float64 `yaml:"learning_rate,omitempty"`
	WeightDecay  *float64 `yaml:"weight_decay,omitempty"`

	// Deprecated: use learning_rate.
	LR *float64 `yaml:"lr,omitempty"`
}

// RunConfig is the validated, effective configuration for a single training
// run after defaults, file values and environment overrides have been merged.
type RunConfig struct {
	Version string // binary version, injected by the loader

	ExperimentName string            // logical experiment grouping (required)
	RunName        string            // explicit run name; generated when empty
	DataSource     string            // dataset path or URL (required)
	SaveDir        string            // artifact root, absolute after loading
	Logger         string            // "tensorboard", "csv", "wandb" or "none"
	LoggerOptions  map[string]string // backend-specific options (e.g. wandb entity)
	TuneMetric     string            // metric name hyperparameter search optimizes
	TuneObjective  string            // "minimize" or "maximize"
	Seed           int               // global RNG seed

	Trainer       TrainerSettings
	Data          DataModuleSettings
	EarlyStopping EarlyStoppingSettings
	Model         ModelSettings
}

// TrainerSettings are the effective training-loop controls.
type TrainerSettings struct {
	MaxEpochs       int     // upper bound on epochs (1-100000)
	Accelerator     string  // "auto", "cpu", "gpu" or "mps"
	Devices         int     // device count per run
	Precision       string  // "32-true", "16-mixed", "bf16-mixed" or "64-true"
	GradientClipVal float64 // 0 disables clipping
	LogEveryNSteps  int     // metric emission cadence in optimizer steps
	Deterministic   bool    // force deterministic kernels
}

// DataModuleSettings are the effective dataset and loading controls.
type DataModuleSettings struct {
	Target        string  // dotted class path of the data module
	BatchSize     int
	NumWorkers    int     // loader worker processes (0 = main process)
	TrainFraction float64 // (0, 1]
	ValFraction   float64 // [0, 1]; TrainFraction+ValFraction <= 1
	Shuffle       bool
	PinMemory     bool
}

// EarlyStoppingSettings are the effective early-stopping controls.
type EarlyStoppingSettings struct {
	Enabled  bool
	Monitor  string  // metric watched for improvement
	Patience int     // epochs without improvement before stopping
	MinDelta float64 // minimum change that counts as improvement
	Mode     string  // "min" or "max"
}

// ModelSettings are the effective model hyperparameters.
type ModelSettings struct {
	Target       string // dotted class path of the model
	HiddenSizes  []int  // layer widths, positional
	Activation   string
	Dropout      float64 // [0, 1)
	OutputDim    int
	Optimizer    string
	LearningRate float64
	WeightDecay  float64
}

// String implements fmt.Stringer with sensitive values redacted so a config
// can be logged without leaking logger credentials or URL-embedded secrets.
func (c RunConfig) String() string {
	return fmt.Sprintf("%+v", MaskSecrets(c))
}
