// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"

	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/validate"
)

// fractionEpsilon absorbs float64 rounding when checking that the train and
// validation fractions fit into the unit interval together.
const fractionEpsilon = 1e-9

var (
	allowedLoggers      = []string{LoggerTensorBoard, LoggerCSV, LoggerWandB, LoggerNone}
	allowedObjectives   = []string{ObjectiveMinimize, ObjectiveMaximize}
	allowedAccelerators = []string{"auto", "cpu", "gpu", "mps"}
	allowedPrecisions   = []string{"32-true", "16-mixed", "bf16-mixed", "64-true"}
	allowedActivations  = []string{"relu", "tanh", "gelu", "leaky_relu", "sigmoid"}
	allowedOptimizers   = []string{"adam", "adamw", "sgd", "rmsprop"}
	allowedModes        = []string{"min", "max"}
)

// Validate validates a RunConfig using the centralized validation package.
// It is purely structural: no filesystem or network access, so a config can
// be checked on machines that do not hold the dataset.
func Validate(cfg RunConfig) error {
	v := validate.New()

	v.NotEmpty("ExperimentName", cfg.ExperimentName)
	v.NotEmpty("DataSource", cfg.DataSource)
	v.NotEmpty("SaveDir", cfg.SaveDir)
	v.OneOf("Logger", cfg.Logger, allowedLoggers)
	v.NotEmpty("TuneMetric", cfg.TuneMetric)
	v.OneOf("TuneObjective", cfg.TuneObjective, allowedObjectives)

	// Trainer
	v.Range("Trainer.MaxEpochs", cfg.Trainer.MaxEpochs, 1, 100000)
	v.OneOf("Trainer.Accelerator", cfg.Trainer.Accelerator, allowedAccelerators)
	v.Positive("Trainer.Devices", cfg.Trainer.Devices)
	v.OneOf("Trainer.Precision", cfg.Trainer.Precision, allowedPrecisions)
	v.NonNegativeFloat("Trainer.GradientClipVal", cfg.Trainer.GradientClipVal)
	v.Positive("Trainer.LogEveryNSteps", cfg.Trainer.LogEveryNSteps)

	// Data module
	validateTarget(v, "Data.Target", cfg.Data.Target)
	v.Positive("Data.BatchSize", cfg.Data.BatchSize)
	v.NonNegative("Data.NumWorkers", cfg.Data.NumWorkers)
	if cfg.Data.TrainFraction <= 0 || cfg.Data.TrainFraction > 1 {
		v.AddError("Data.TrainFraction", "must be in (0.0, 1.0]", cfg.Data.TrainFraction)
	}
	v.FloatRange("Data.ValFraction", cfg.Data.ValFraction, 0, 1)
	// Fractions may sum below 1.0: the remainder is an implicit test split.
	if cfg.Data.TrainFraction+cfg.Data.ValFraction > 1.0+fractionEpsilon {
		v.AddError("Data.ValFraction", "train_fraction + val_fraction must not exceed 1.0", cfg.Data.TrainFraction+cfg.Data.ValFraction)
	}

	// Early stopping (only when enabled)
	if cfg.EarlyStopping.Enabled {
		v.NotEmpty("EarlyStopping.Monitor", cfg.EarlyStopping.Monitor)
		v.Positive("EarlyStopping.Patience", cfg.EarlyStopping.Patience)
		v.NonNegativeFloat("EarlyStopping.MinDelta", cfg.EarlyStopping.MinDelta)
		v.OneOf("EarlyStopping.Mode", cfg.EarlyStopping.Mode, allowedModes)
	}

	// Model
	validateTarget(v, "Model.Target", cfg.Model.Target)
	if len(cfg.Model.HiddenSizes) == 0 {
		v.AddError("Model.HiddenSizes", "must contain at least one layer width", "")
	}
	for i, size := range cfg.Model.HiddenSizes {
		if size <= 0 {
			v.AddError(fmt.Sprintf("Model.HiddenSizes[%d]", i), "must be > 0", size)
		}
	}
	v.OneOf("Model.Activation", cfg.Model.Activation, allowedActivations)
	if cfg.Model.Dropout < 0 || cfg.Model.Dropout >= 1 {
		v.AddError("Model.Dropout", "must be in [0.0, 1.0)", cfg.Model.Dropout)
	}
	v.Positive("Model.OutputDim", cfg.Model.OutputDim)
	v.OneOf("Model.Optimizer", cfg.Model.Optimizer, allowedOptimizers)
	v.PositiveFloat("Model.LearningRate", cfg.Model.LearningRate)
	v.NonNegativeFloat("Model.WeightDecay", cfg.Model.WeightDecay)

	warnObjectiveModeMismatch(cfg)
	warnUnusedLoggerOptions(cfg)

	if !v.IsValid() {
		return v.Err()
	}

	return nil
}

// ValidateStrict performs the filesystem and URL checks that Validate skips.
// It assumes Validate already passed.
func ValidateStrict(cfg RunConfig) error {
	v := validate.New()

	if hasURLScheme(cfg.DataSource) {
		v.URL("DataSource", cfg.DataSource, []string{"s3", "gs", "http", "https"})
	} else {
		v.File("DataSource", cfg.DataSource)
	}

	// Creates the directory when missing so the first run does not fail on
	// a fresh checkout.
	v.Directory("SaveDir", cfg.SaveDir, false)

	if !v.IsValid() {
		return v.Err()
	}

	return nil
}

// validateTarget checks that a target string is a dotted class path like
// "metacure.models.MLPRegressor": at least two segments, each a valid
// identifier. Resolution against the model registry happens elsewhere.
func validateTarget(v *validate.Validator, field, target string) {
	if target == "" {
		v.AddError(field, "must not be empty", target)
		return
	}
	segments := strings.Split(target, ".")
	if len(segments) < 2 {
		v.AddError(field, "must be a dotted class path (e.g. metacure.models.MLPRegressor)", target)
		return
	}
	for _, seg := range segments {
		if !isIdentifier(seg) {
			v.AddError(field, fmt.Sprintf("segment %q is not a valid identifier", seg), target)
			return
		}
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func hasURLScheme(s string) bool {
	idx := strings.Index(s, "://")
	return idx > 0
}

// warnObjectiveModeMismatch flags configs where early stopping and the tuner
// watch the same metric but pull in opposite directions. Legal, almost
// always a mistake.
func warnObjectiveModeMismatch(cfg RunConfig) {
	if !cfg.EarlyStopping.Enabled || cfg.EarlyStopping.Monitor != cfg.TuneMetric {
		return
	}
	minVsMax := cfg.EarlyStopping.Mode == "min" && cfg.TuneObjective == ObjectiveMaximize
	maxVsMin := cfg.EarlyStopping.Mode == "max" && cfg.TuneObjective == ObjectiveMinimize
	if minVsMax || maxVsMin {
		logger := log.WithComponent("config")
		logger.Warn().
			Str(log.FieldMetric, cfg.TuneMetric).
			Str("early_stopping_mode", cfg.EarlyStopping.Mode).
			Str(log.FieldObjective, cfg.TuneObjective).
			Msg("early stopping mode and tune objective disagree on the same metric")
	}
}

// warnUnusedLoggerOptions flags logger options that can never take effect.
func warnUnusedLoggerOptions(cfg RunConfig) {
	if cfg.Logger == LoggerNone && len(cfg.LoggerOptions) > 0 {
		logger := log.WithComponent("config")
		logger.Warn().
			Int("options", len(cfg.LoggerOptions)).
			Msg("logger_options are set but logger is \"none\"")
	}
}
