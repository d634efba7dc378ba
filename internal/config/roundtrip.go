// SPDX-License-Identifier: MIT

package config

func ptr[T any](v T) *T { return &v }

// ToFileConfig renders cfg as a fully explicit file view: every key is set,
// so parsing the result back yields the same effective config without
// consulting defaults or the environment. Run directories store this view
// as config.yaml.
func ToFileConfig(cfg RunConfig) *FileConfig {
	fc := &FileConfig{
		ExperimentName: ptr(cfg.ExperimentName),
		RunName:        ptr(cfg.RunName),
		DataSource:     ptr(cfg.DataSource),
		SaveDir:        ptr(cfg.SaveDir),
		Logger:         ptr(cfg.Logger),
		TuneMetric:     ptr(cfg.TuneMetric),
		TuneObjective:  ptr(cfg.TuneObjective),
		Seed:           ptr(cfg.Seed),
		Trainer: TrainerFile{
			MaxEpochs:       ptr(cfg.Trainer.MaxEpochs),
			Accelerator:     ptr(cfg.Trainer.Accelerator),
			Devices:         ptr(cfg.Trainer.Devices),
			Precision:       ptr(cfg.Trainer.Precision),
			GradientClipVal: ptr(cfg.Trainer.GradientClipVal),
			LogEveryNSteps:  ptr(cfg.Trainer.LogEveryNSteps),
			Deterministic:   ptr(cfg.Trainer.Deterministic),
		},
		DataModule: DataModuleFile{
			Target:        ptr(cfg.Data.Target),
			BatchSize:     ptr(cfg.Data.BatchSize),
			NumWorkers:    ptr(cfg.Data.NumWorkers),
			TrainFraction: ptr(cfg.Data.TrainFraction),
			ValFraction:   ptr(cfg.Data.ValFraction),
			Shuffle:       ptr(cfg.Data.Shuffle),
			PinMemory:     ptr(cfg.Data.PinMemory),
		},
		EarlyStopping: EarlyStoppingFile{
			Enabled:  ptr(cfg.EarlyStopping.Enabled),
			Monitor:  ptr(cfg.EarlyStopping.Monitor),
			Patience: ptr(cfg.EarlyStopping.Patience),
			MinDelta: ptr(cfg.EarlyStopping.MinDelta),
			Mode:     ptr(cfg.EarlyStopping.Mode),
		},
		Model: ModelFile{
			Target:       ptr(cfg.Model.Target),
			HiddenSizes:  cloneIntSlice(cfg.Model.HiddenSizes),
			Activation:   ptr(cfg.Model.Activation),
			Dropout:      ptr(cfg.Model.Dropout),
			OutputDim:    ptr(cfg.Model.OutputDim),
			Optimizer:    ptr(cfg.Model.Optimizer),
			LearningRate: ptr(cfg.Model.LearningRate),
			WeightDecay:  ptr(cfg.Model.WeightDecay),
		},
	}
	if len(cfg.LoggerOptions) > 0 {
		fc.LoggerOptions = cloneStringMap(cfg.LoggerOptions)
	}
	return fc
}

// FromFileConfig is the inverse of ToFileConfig, used to read back a stored
// config.yaml snapshot. Absent keys stay zero: no defaults, no environment,
// no ${VAR} expansion. Deprecated aliases are honored so snapshots written
// by older versions still load.
func FromFileConfig(fc *FileConfig) RunConfig {
	var cfg RunConfig
	if fc == nil {
		return cfg
	}

	setIf(&cfg.ExperimentName, fc.ExperimentName)
	setIf(&cfg.RunName, fc.RunName)
	setIf(&cfg.DataSource, fc.DataSource)
	setIf(&cfg.SaveDir, fc.LogDir)
	setIf(&cfg.SaveDir, fc.SaveDir)
	setIf(&cfg.Logger, fc.Logger)
	if len(fc.LoggerOptions) > 0 {
		cfg.LoggerOptions = cloneStringMap(fc.LoggerOptions)
	}
	setIf(&cfg.TuneMetric, fc.TuneMetric)
	setIf(&cfg.TuneObjective, fc.TuneObjective)
	setIf(&cfg.Seed, fc.Seed)

	setIf(&cfg.Trainer.MaxEpochs, fc.Trainer.MaxEpochs)
	setIf(&cfg.Trainer.Accelerator, fc.Trainer.Accelerator)
	setIf(&cfg.Trainer.Devices, fc.Trainer.Devices)
	setIf(&cfg.Trainer.Precision, fc.Trainer.Precision)
	setIf(&cfg.Trainer.GradientClipVal, fc.Trainer.GradientClipVal)
	setIf(&cfg.Trainer.LogEveryNSteps, fc.Trainer.LogEveryNSteps)
	setIf(&cfg.Trainer.Deterministic, fc.Trainer.Deterministic)

	setIf(&cfg.Data.Target, fc.DataModule.Target)
	setIf(&cfg.Data.BatchSize, fc.DataModule.BatchSize)
	setIf(&cfg.Data.NumWorkers, fc.DataModule.NumWorkers)
	setIf(&cfg.Data.TrainFraction, fc.DataModule.TrainFraction)
	setIf(&cfg.Data.ValFraction, fc.DataModule.ValSplit)
	setIf(&cfg.Data.ValFraction, fc.DataModule.ValFraction)
	setIf(&cfg.Data.Shuffle, fc.DataModule.Shuffle)
	setIf(&cfg.Data.PinMemory, fc.DataModule.PinMemory)

	setIf(&cfg.EarlyStopping.Enabled, fc.EarlyStopping.Enabled)
	setIf(&cfg.EarlyStopping.Monitor, fc.EarlyStopping.Monitor)
	setIf(&cfg.EarlyStopping.Patience, fc.EarlyStopping.Patience)
	setIf(&cfg.EarlyStopping.MinDelta, fc.EarlyStopping.MinDelta)
	setIf(&cfg.EarlyStopping.Mode, fc.EarlyStopping.Mode)

	setIf(&cfg.Model.Target, fc.Model.Target)
	if len(fc.Model.HiddenSizes) > 0 {
		cfg.Model.HiddenSizes = cloneIntSlice(fc.Model.HiddenSizes)
	}
	setIf(&cfg.Model.Activation, fc.Model.Activation)
	setIf(&cfg.Model.Dropout, fc.Model.Dropout)
	setIf(&cfg.Model.OutputDim, fc.Model.OutputDim)
	setIf(&cfg.Model.Optimizer, fc.Model.Optimizer)
	setIf(&cfg.Model.LearningRate, fc.Model.LR)
	setIf(&cfg.Model.LearningRate, fc.Model.LearningRate)
	setIf(&cfg.Model.WeightDecay, fc.Model.WeightDecay)

	return cfg
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Masked returns a copy of cfg safe to serialize for logs or API responses:
// URL credentials in data_source are stripped and sensitive logger_options
// values are replaced with "***".
func Masked(cfg RunConfig) RunConfig {
	out := Clone(cfg)
	out.DataSource = MaskURL(out.DataSource)
	for k, v := range out.LoggerOptions {
		if isSensitiveKey(k) {
			out.LoggerOptions[k] = "***"
		} else {
			out.LoggerOptions[k] = MaskURL(v)
		}
	}
	return out
}
