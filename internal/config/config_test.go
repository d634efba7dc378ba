// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a YAML document to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// minimalConfig carries only the required fields so everything else
// exercises registry defaults.
const minimalConfig = `
experiment_name: baseline
data_source: data/train.h5
`

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, minimalConfig)

	loader := NewLoader(configPath, "test-version")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Logger != "tensorboard" {
		t.Errorf("expected Logger=tensorboard, got %s", cfg.Logger)
	}
	if cfg.TuneMetric != "val_loss" {
		t.Errorf("expected TuneMetric=val_loss, got %s", cfg.TuneMetric)
	}
	if cfg.TuneObjective != "minimize" {
		t.Errorf("expected TuneObjective=minimize, got %s", cfg.TuneObjective)
	}
	if cfg.Seed != 42 {
		t.Errorf("expected Seed=42, got %d", cfg.Seed)
	}
	if cfg.Trainer.MaxEpochs != 100 {
		t.Errorf("expected Trainer.MaxEpochs=100, got %d", cfg.Trainer.MaxEpochs)
	}
	if cfg.Trainer.Accelerator != "auto" {
		t.Errorf("expected Trainer.Accelerator=auto, got %s", cfg.Trainer.Accelerator)
	}
	if cfg.Trainer.Precision != "32-true" {
		t.Errorf("expected Trainer.Precision=32-true, got %s", cfg.Trainer.Precision)
	}
	if cfg.Trainer.LogEveryNSteps != 50 {
		t.Errorf("expected Trainer.LogEveryNSteps=50, got %d", cfg.Trainer.LogEveryNSteps)
	}
	if cfg.Data.Target != "metacure.data.HDF5DataModule" {
		t.Errorf("expected Data.Target=metacure.data.HDF5DataModule, got %s", cfg.Data.Target)
	}
	if cfg.Data.BatchSize != 128 {
		t.Errorf("expected Data.BatchSize=128, got %d", cfg.Data.BatchSize)
	}
	if cfg.Data.TrainFraction != 0.9 {
		t.Errorf("expected Data.TrainFraction=0.9, got %v", cfg.Data.TrainFraction)
	}
	if !cfg.Data.Shuffle {
		t.Error("expected Data.Shuffle=true by default")
	}
	if !cfg.EarlyStopping.Enabled {
		t.Error("expected EarlyStopping.Enabled=true by default")
	}
	if cfg.EarlyStopping.Patience != 10 {
		t.Errorf("expected EarlyStopping.Patience=10, got %d", cfg.EarlyStopping.Patience)
	}
	if cfg.Model.Target != "metacure.models.MLPRegressor" {
		t.Errorf("expected Model.Target=metacure.models.MLPRegressor, got %s", cfg.Model.Target)
	}
	if len(cfg.Model.HiddenSizes) != 2 || cfg.Model.HiddenSizes[0] != 256 || cfg.Model.HiddenSizes[1] != 256 {
		t.Errorf("expected Model.HiddenSizes=[256 256], got %v", cfg.Model.HiddenSizes)
	}
	if cfg.Model.Optimizer != "adam" {
		t.Errorf("expected Model.Optimizer=adam, got %s", cfg.Model.Optimizer)
	}
	if cfg.Model.LearningRate != 0.001 {
		t.Errorf("expected Model.LearningRate=0.001, got %v", cfg.Model.LearningRate)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	loader := NewLoader("", "1.0.0")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error for empty config, got nil")
	}
	if !strings.Contains(err.Error(), "ExperimentName") {
		t.Errorf("expected error to mention ExperimentName, got: %v", err)
	}
	if !strings.Contains(err.Error(), "DataSource") {
		t.Errorf("expected error to mention DataSource, got: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	configPath := writeConfig(t, `
experiment_name: mlp-osc-strength
run_name: wide-net
data_source: data/oscillator.h5
save_dir: artifacts
logger: wandb
logger_options:
  project: metacure
  entity: dynamics-lab
tune_metric: val_mae
tune_objective: minimize
seed: 7
trainer:
  max_epochs: 250
  accelerator: gpu
  devices: 2
  precision: 16-mixed
  gradient_clip_val: 0.5
  log_every_n_steps: 25
  deterministic: true
data_module:
  target: metacure.data.HDF5DataModule
  batch_size: 64
  num_workers: 8
  train_fraction: 0.8
  val_fraction: 0.2
  shuffle: true
  pin_memory: true
early_stopping:
  enabled: true
  monitor: val_mae
  patience: 25
  min_delta: 0.0001
  mode: min
model:
  target: metacure.models.MLPRegressor
  hidden_sizes: [512, 512, 256]
  activation: gelu
  dropout: 0.1
  output_dim: 3
  optimizer: adamw
  learning_rate: 0.0003
  weight_decay: 0.01
`)

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ExperimentName != "mlp-osc-strength" {
		t.Errorf("expected ExperimentName=mlp-osc-strength, got %s", cfg.ExperimentName)
	}
	if cfg.RunName != "wide-net" {
		t.Errorf("expected RunName=wide-net, got %s", cfg.RunName)
	}
	if cfg.Logger != "wandb" {
		t.Errorf("expected Logger=wandb, got %s", cfg.Logger)
	}
	if cfg.LoggerOptions["entity"] != "dynamics-lab" {
		t.Errorf("expected logger_options.entity=dynamics-lab, got %v", cfg.LoggerOptions)
	}
	if cfg.Seed != 7 {
		t.Errorf("expected Seed=7, got %d", cfg.Seed)
	}
	if cfg.Trainer.MaxEpochs != 250 {
		t.Errorf("expected Trainer.MaxEpochs=250, got %d", cfg.Trainer.MaxEpochs)
	}
	if cfg.Trainer.Precision != "16-mixed" {
		t.Errorf("expected Trainer.Precision=16-mixed, got %s", cfg.Trainer.Precision)
	}
	if !cfg.Trainer.Deterministic {
		t.Error("expected Trainer.Deterministic=true")
	}
	if cfg.Data.BatchSize != 64 {
		t.Errorf("expected Data.BatchSize=64, got %d", cfg.Data.BatchSize)
	}
	if cfg.Data.ValFraction != 0.2 {
		t.Errorf("expected Data.ValFraction=0.2, got %v", cfg.Data.ValFraction)
	}
	if !cfg.Data.PinMemory {
		t.Error("expected Data.PinMemory=true")
	}
	if cfg.EarlyStopping.Patience != 25 {
		t.Errorf("expected EarlyStopping.Patience=25, got %d", cfg.EarlyStopping.Patience)
	}
	want := []int{512, 512, 256}
	if len(cfg.Model.HiddenSizes) != len(want) {
		t.Fatalf("expected Model.HiddenSizes=%v, got %v", want, cfg.Model.HiddenSizes)
	}
	for i := range want {
		if cfg.Model.HiddenSizes[i] != want[i] {
			t.Fatalf("expected Model.HiddenSizes=%v, got %v", want, cfg.Model.HiddenSizes)
		}
	}
	if cfg.Model.Activation != "gelu" {
		t.Errorf("expected Model.Activation=gelu, got %s", cfg.Model.Activation)
	}
	if cfg.Model.LearningRate != 0.0003 {
		t.Errorf("expected Model.LearningRate=0.0003, got %v", cfg.Model.LearningRate)
	}
}

func TestENVOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `
experiment_name: from-file
data_source: data/file.h5
seed: 1
trainer:
  max_epochs: 10
model:
  learning_rate: 0.01
`)

	t.Setenv("METACURE_EXPERIMENT_NAME", "from-env")
	t.Setenv("METACURE_SEED", "99")
	t.Setenv("METACURE_TRAINER_MAX_EPOCHS", "20")
	t.Setenv("METACURE_MODEL_LEARNING_RATE", "0.02")

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ExperimentName != "from-env" {
		t.Errorf("expected ENV to override file: ExperimentName=from-env, got %s", cfg.ExperimentName)
	}
	if cfg.Seed != 99 {
		t.Errorf("expected ENV to override file: Seed=99, got %d", cfg.Seed)
	}
	if cfg.Trainer.MaxEpochs != 20 {
		t.Errorf("expected ENV to override file: Trainer.MaxEpochs=20, got %d", cfg.Trainer.MaxEpochs)
	}
	if cfg.Model.LearningRate != 0.02 {
		t.Errorf("expected ENV to override file: Model.LearningRate=0.02, got %v", cfg.Model.LearningRate)
	}
}

func TestPrecedenceOrder(t *testing.T) {
	configPath := writeConfig(t, `
experiment_name: precedence
data_source: data/train.h5
trainer:
  max_epochs: 500
early_stopping:
  patience: 5
`)

	t.Setenv("METACURE_EARLY_STOPPING_PATIENCE", "3")

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Trainer.MaxEpochs != 500 {
		t.Errorf("expected Trainer.MaxEpochs from file: 500, got %d", cfg.Trainer.MaxEpochs)
	}
	if cfg.EarlyStopping.Patience != 3 {
		t.Errorf("expected EarlyStopping.Patience from ENV: 3, got %d", cfg.EarlyStopping.Patience)
	}
	if cfg.Data.BatchSize != 128 {
		t.Errorf("expected Data.BatchSize from default: 128, got %d", cfg.Data.BatchSize)
	}
	if cfg.Model.Optimizer != "adam" {
		t.Errorf("expected Model.Optimizer from default: adam, got %s", cfg.Model.Optimizer)
	}
}

// Explicit zero values in YAML must survive merging even when the registry
// default is non-zero.
func TestExplicitZeroSurvivesDefaults(t *testing.T) {
	configPath := writeConfig(t, `
experiment_name: zeros
data_source: data/train.h5
data_module:
  shuffle: false
early_stopping:
  enabled: false
model:
  dropout: 0.0
  weight_decay: 0.0
`)

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Data.Shuffle {
		t.Error("expected explicit shuffle=false to survive the default true")
	}
	if cfg.EarlyStopping.Enabled {
		t.Error("expected explicit early_stopping.enabled=false to survive the default true")
	}
	if cfg.Model.Dropout != 0 {
		t.Errorf("expected Model.Dropout=0, got %v", cfg.Model.Dropout)
	}
}

func TestSaveDirIsAbsoluteAfterLoad(t *testing.T) {
	configPath := writeConfig(t, `
experiment_name: abs
data_source: data/train.h5
save_dir: relative/runs
`)

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !filepath.IsAbs(cfg.SaveDir) {
		t.Errorf("expected absolute SaveDir, got %s", cfg.SaveDir)
	}
	if !strings.HasSuffix(cfg.SaveDir, filepath.Join("relative", "runs")) {
		t.Errorf("expected SaveDir to end in relative/runs, got %s", cfg.SaveDir)
	}
}

func TestDeprecatedAliases(t *testing.T) {
	t.Run("aliases apply when canonical keys are absent", func(t *testing.T) {
		configPath := writeConfig(t, `
experiment_name: aliases
data_source: data/train.h5
log_dir: old-output
data_module:
  val_split: 0.15
model:
  lr: 0.005
`)

		loader := NewLoader(configPath, "1.0.0")
		cfg, err := loader.Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if !strings.HasSuffix(cfg.SaveDir, "old-output") {
			t.Errorf("expected log_dir alias to set SaveDir, got %s", cfg.SaveDir)
		}
		if cfg.Data.ValFraction != 0.15 {
			t.Errorf("expected val_split alias to set ValFraction=0.15, got %v", cfg.Data.ValFraction)
		}
		if cfg.Model.LearningRate != 0.005 {
			t.Errorf("expected lr alias to set LearningRate=0.005, got %v", cfg.Model.LearningRate)
		}
	})

	t.Run("canonical keys win over aliases", func(t *testing.T) {
		configPath := writeConfig(t, `
experiment_name: aliases
data_source: data/train.h5
save_dir: new-output
log_dir: old-output
data_module:
  val_fraction: 0.2
  val_split: 0.15
model:
  learning_rate: 0.001
  lr: 0.005
`)

		loader := NewLoader(configPath, "1.0.0")
		cfg, err := loader.Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if !strings.HasSuffix(cfg.SaveDir, "new-output") {
			t.Errorf("expected save_dir to win over log_dir, got %s", cfg.SaveDir)
		}
		if cfg.Data.ValFraction != 0.2 {
			t.Errorf("expected val_fraction to win over val_split, got %v", cfg.Data.ValFraction)
		}
		if cfg.Model.LearningRate != 0.001 {
			t.Errorf("expected learning_rate to win over lr, got %v", cfg.Model.LearningRate)
		}
	})
}

func TestEnvExpansionInFileValues(t *testing.T) {
	t.Setenv("TEST_DATA_ROOT", "/srv/datasets")

	configPath := writeConfig(t, `
experiment_name: expansion
data_source: ${TEST_DATA_ROOT}/oscillator.h5
`)

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataSource != "/srv/datasets/oscillator.h5" {
		t.Errorf("expected expanded DataSource, got %s", cfg.DataSource)
	}
}

func TestLoggerOptionsFromEnvReplaceFile(t *testing.T) {
	configPath := writeConfig(t, `
experiment_name: opts
data_source: data/train.h5
logger: wandb
logger_options:
  project: from-file
  entity: lab
`)

	t.Setenv("METACURE_LOGGER_OPTIONS", "project=from-env,mode=offline")

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LoggerOptions["project"] != "from-env" {
		t.Errorf("expected project=from-env, got %v", cfg.LoggerOptions)
	}
	if cfg.LoggerOptions["mode"] != "offline" {
		t.Errorf("expected mode=offline, got %v", cfg.LoggerOptions)
	}
	// ENV replaces the map wholesale, file-only keys are gone.
	if _, ok := cfg.LoggerOptions["entity"]; ok {
		t.Errorf("expected entity to be dropped on ENV replace, got %v", cfg.LoggerOptions)
	}
}

func TestHiddenSizesFromEnv(t *testing.T) {
	configPath := writeConfig(t, minimalConfig)

	t.Setenv("METACURE_MODEL_HIDDEN_SIZES", "512,256,128")

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []int{512, 256, 128}
	if fmt.Sprintf("%v", cfg.Model.HiddenSizes) != fmt.Sprintf("%v", want) {
		t.Errorf("expected Model.HiddenSizes=%v, got %v", want, cfg.Model.HiddenSizes)
	}
}

func TestInvalidHiddenSizesEnvKeepsCurrent(t *testing.T) {
	configPath := writeConfig(t, minimalConfig)

	t.Setenv("METACURE_MODEL_HIDDEN_SIZES", "512,abc")

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Model.HiddenSizes) != 2 || cfg.Model.HiddenSizes[0] != 256 {
		t.Errorf("expected default hidden sizes after invalid ENV, got %v", cfg.Model.HiddenSizes)
	}
}

func TestConsumedEnvKeys(t *testing.T) {
	configPath := writeConfig(t, minimalConfig)

	loader := NewLoader(configPath, "1.0.0")
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	for _, key := range []string{
		"METACURE_EXPERIMENT_NAME",
		"METACURE_SEED",
		"METACURE_TRAINER_MAX_EPOCHS",
		"METACURE_MODEL_HIDDEN_SIZES",
		"METACURE_EARLY_STOPPING_MODE",
	} {
		if _, ok := loader.ConsumedEnvKeys[key]; !ok {
			t.Errorf("expected %s in ConsumedEnvKeys", key)
		}
	}
}

func TestRunConfigStringMasksSecrets(t *testing.T) {
	cfg := RunConfig{
		ExperimentName: "masked",
		DataSource:     "s3://user:hunter2@bucket/train.h5",
		LoggerOptions:  map[string]string{"api_key": "wandb-secret", "project": "metacure"},
	}

	out := cfg.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("expected URL credentials to be masked, got %s", out)
	}
	if strings.Contains(out, "wandb-secret") {
		t.Errorf("expected api_key to be masked, got %s", out)
	}
	if !strings.Contains(out, "metacure") {
		t.Errorf("expected non-sensitive values to remain, got %s", out)
	}
}
