// SPDX-License-Identifier: MIT

package config

import (
	"github.com/virajmehta/MetaCURE-Public/internal/log"
)

// mergeEnvConfig merges environment variables into the run config.
// ENV variables have the highest precedence.
// Uses consistent ParseBool/ParseInt/ParseFloat helpers from env.go.
func (l *Loader) mergeEnvConfig(cfg *RunConfig) {
	l.mergeEnvRun(cfg)
	l.mergeEnvTrainer(cfg)
	l.mergeEnvDataModule(cfg)
	l.mergeEnvEarlyStopping(cfg)
	l.mergeEnvModel(cfg)
}

func (l *Loader) mergeEnvRun(cfg *RunConfig) {
	cfg.ExperimentName = l.envString("METACURE_EXPERIMENT_NAME", cfg.ExperimentName)
	cfg.RunName = l.envString("METACURE_RUN_NAME", cfg.RunName)
	cfg.DataSource = l.envString("METACURE_DATA_SOURCE", cfg.DataSource)
	cfg.SaveDir = l.envString("METACURE_SAVE_DIR", cfg.SaveDir)
	cfg.Logger = l.envString("METACURE_LOGGER", cfg.Logger)

	if raw, ok := l.envLookup("METACURE_LOGGER_OPTIONS"); ok {
		opts, err := ParseOptionPairs(raw)
		switch {
		case err != nil:
			logger := log.WithComponent("config")
			logger.Warn().
				Err(err).
				Str("key", "METACURE_LOGGER_OPTIONS").
				Msg("invalid logger options in environment variable, keeping current value")
		case opts != nil:
			// ENV replaces the whole map rather than merging per key.
			cfg.LoggerOptions = opts
		}
	}

	cfg.TuneMetric = l.envString("METACURE_TUNE_METRIC", cfg.TuneMetric)
	cfg.TuneObjective = l.envString("METACURE_TUNE_OBJECTIVE", cfg.TuneObjective)
	cfg.Seed = l.envInt("METACURE_SEED", cfg.Seed)
}

func (l *Loader) mergeEnvTrainer(cfg *RunConfig) {
	cfg.Trainer.MaxEpochs = l.envInt("METACURE_TRAINER_MAX_EPOCHS", cfg.Trainer.MaxEpochs)
	cfg.Trainer.Accelerator = l.envString("METACURE_TRAINER_ACCELERATOR", cfg.Trainer.Accelerator)
	cfg.Trainer.Devices = l.envInt("METACURE_TRAINER_DEVICES", cfg.Trainer.Devices)
	cfg.Trainer.Precision = l.envString("METACURE_TRAINER_PRECISION", cfg.Trainer.Precision)
	cfg.Trainer.GradientClipVal = l.envFloat("METACURE_TRAINER_GRADIENT_CLIP_VAL", cfg.Trainer.GradientClipVal)
	cfg.Trainer.LogEveryNSteps = l.envInt("METACURE_TRAINER_LOG_EVERY_N_STEPS", cfg.Trainer.LogEveryNSteps)
	cfg.Trainer.Deterministic = l.envBool("METACURE_TRAINER_DETERMINISTIC", cfg.Trainer.Deterministic)
}

func (l *Loader) mergeEnvDataModule(cfg *RunConfig) {
	cfg.Data.Target = l.envString("METACURE_DATA_TARGET", cfg.Data.Target)
	cfg.Data.BatchSize = l.envInt("METACURE_DATA_BATCH_SIZE", cfg.Data.BatchSize)
	cfg.Data.NumWorkers = l.envInt("METACURE_DATA_NUM_WORKERS", cfg.Data.NumWorkers)
	cfg.Data.TrainFraction = l.envFloat("METACURE_DATA_TRAIN_FRACTION", cfg.Data.TrainFraction)
	cfg.Data.ValFraction = l.envFloat("METACURE_DATA_VAL_FRACTION", cfg.Data.ValFraction)
	cfg.Data.Shuffle = l.envBool("METACURE_DATA_SHUFFLE", cfg.Data.Shuffle)
	cfg.Data.PinMemory = l.envBool("METACURE_DATA_PIN_MEMORY", cfg.Data.PinMemory)
}

func (l *Loader) mergeEnvEarlyStopping(cfg *RunConfig) {
	cfg.EarlyStopping.Enabled = l.envBool("METACURE_EARLY_STOPPING_ENABLED", cfg.EarlyStopping.Enabled)
	cfg.EarlyStopping.Monitor = l.envString("METACURE_EARLY_STOPPING_MONITOR", cfg.EarlyStopping.Monitor)
	cfg.EarlyStopping.Patience = l.envInt("METACURE_EARLY_STOPPING_PATIENCE", cfg.EarlyStopping.Patience)
	cfg.EarlyStopping.MinDelta = l.envFloat("METACURE_EARLY_STOPPING_MIN_DELTA", cfg.EarlyStopping.MinDelta)
	cfg.EarlyStopping.Mode = l.envString("METACURE_EARLY_STOPPING_MODE", cfg.EarlyStopping.Mode)
}

func (l *Loader) mergeEnvModel(cfg *RunConfig) {
	cfg.Model.Target = l.envString("METACURE_MODEL_TARGET", cfg.Model.Target)

	if raw, ok := l.envLookup("METACURE_MODEL_HIDDEN_SIZES"); ok {
		sizes, err := ParseHiddenSizes(raw)
		switch {
		case err != nil:
			logger := log.WithComponent("config")
			logger.Warn().
				Err(err).
				Str("key", "METACURE_MODEL_HIDDEN_SIZES").
				Msg("invalid hidden sizes in environment variable, keeping current value")
		case sizes != nil:
			cfg.Model.HiddenSizes = sizes
		}
	}

	cfg.Model.Activation = l.envString("METACURE_MODEL_ACTIVATION", cfg.Model.Activation)
	cfg.Model.Dropout = l.envFloat("METACURE_MODEL_DROPOUT", cfg.Model.Dropout)
	cfg.Model.OutputDim = l.envInt("METACURE_MODEL_OUTPUT_DIM", cfg.Model.OutputDim)
	cfg.Model.Optimizer = l.envString("METACURE_MODEL_OPTIMIZER", cfg.Model.Optimizer)
	cfg.Model.LearningRate = l.envFloat("METACURE_MODEL_LEARNING_RATE", cfg.Model.LearningRate)
	cfg.Model.WeightDecay = l.envFloat("METACURE_MODEL_WEIGHT_DECAY", cfg.Model.WeightDecay)
}
