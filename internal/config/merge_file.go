// SPDX-License-Identifier: MIT

package config

// mergeFileConfig merges file configuration into the run config.
// Nil pointers mean "key absent" and leave the current value untouched, so
// explicit zeros from YAML survive while defaults fill the gaps.
func (l *Loader) mergeFileConfig(dst *RunConfig, src *FileConfig) {
	l.mergeFileRun(dst, src)
	l.mergeFileTrainer(dst, &src.Trainer)
	l.mergeFileDataModule(dst, &src.DataModule)
	l.mergeFileEarlyStopping(dst, &src.EarlyStopping)
	l.mergeFileModel(dst, &src.Model)
}

func (l *Loader) mergeFileRun(dst *RunConfig, src *FileConfig) {
	if src.ExperimentName != nil {
		dst.ExperimentName = expandEnv(*src.ExperimentName)
	}
	if src.RunName != nil {
		dst.RunName = expandEnv(*src.RunName)
	}
	if src.DataSource != nil {
		dst.DataSource = expandEnv(*src.DataSource)
	}
	// log_dir predates save_dir; the canonical key wins when both are set.
	if src.LogDir != nil && src.SaveDir == nil {
		dst.SaveDir = expandEnv(*src.LogDir)
	}
	if src.SaveDir != nil {
		dst.SaveDir = expandEnv(*src.SaveDir)
	}
	if src.Logger != nil {
		dst.Logger = *src.Logger
	}
	if len(src.LoggerOptions) > 0 {
		if dst.LoggerOptions == nil {
			dst.LoggerOptions = make(map[string]string, len(src.LoggerOptions))
		}
		for k, v := range src.LoggerOptions {
			dst.LoggerOptions[k] = expandEnv(v)
		}
	}
	if src.TuneMetric != nil {
		dst.TuneMetric = expandEnv(*src.TuneMetric)
	}
	if src.TuneObjective != nil {
		dst.TuneObjective = *src.TuneObjective
	}
	if src.Seed != nil {
		dst.Seed = *src.Seed
	}
}

func (l *Loader) mergeFileTrainer(dst *RunConfig, src *TrainerFile) {
	if src.MaxEpochs != nil {
		dst.Trainer.MaxEpochs = *src.MaxEpochs
	}
	if src.Accelerator != nil {
		dst.Trainer.Accelerator = *src.Accelerator
	}
	if src.Devices != nil {
		dst.Trainer.Devices = *src.Devices
	}
	if src.Precision != nil {
		dst.Trainer.Precision = *src.Precision
	}
	if src.GradientClipVal != nil {
		dst.Trainer.GradientClipVal = *src.GradientClipVal
	}
	if src.LogEveryNSteps != nil {
		dst.Trainer.LogEveryNSteps = *src.LogEveryNSteps
	}
	if src.Deterministic != nil {
		dst.Trainer.Deterministic = *src.Deterministic
	}
}

func (l *Loader) mergeFileDataModule(dst *RunConfig, src *DataModuleFile) {
	if src.Target != nil {
		dst.Data.Target = *src.Target
	}
	if src.BatchSize != nil {
		dst.Data.BatchSize = *src.BatchSize
	}
	if src.NumWorkers != nil {
		dst.Data.NumWorkers = *src.NumWorkers
	}
	if src.TrainFraction != nil {
		dst.Data.TrainFraction = *src.TrainFraction
	}
	// val_split is the deprecated spelling; val_fraction wins when both are set.
	if src.ValSplit != nil && src.ValFraction == nil {
		dst.Data.ValFraction = *src.ValSplit
	}
	if src.ValFraction != nil {
		dst.Data.ValFraction = *src.ValFraction
	}
	if src.Shuffle != nil {
		dst.Data.Shuffle = *src.Shuffle
	}
	if src.PinMemory != nil {
		dst.Data.PinMemory = *src.PinMemory
	}
}

func (l *Loader) mergeFileEarlyStopping(dst *RunConfig, src *EarlyStoppingFile) {
	if src.Enabled != nil {
		dst.EarlyStopping.Enabled = *src.Enabled
	}
	if src.Monitor != nil {
		dst.EarlyStopping.Monitor = *src.Monitor
	}
	if src.Patience != nil {
		dst.EarlyStopping.Patience = *src.Patience
	}
	if src.MinDelta != nil {
		dst.EarlyStopping.MinDelta = *src.MinDelta
	}
	if src.Mode != nil {
		dst.EarlyStopping.Mode = *src.Mode
	}
}

func (l *Loader) mergeFileModel(dst *RunConfig, src *ModelFile) {
	if src.Target != nil {
		dst.Model.Target = *src.Target
	}
	if len(src.HiddenSizes) > 0 {
		dst.Model.HiddenSizes = append([]int(nil), src.HiddenSizes...)
	}
	if src.Activation != nil {
		dst.Model.Activation = *src.Activation
	}
	if src.Dropout != nil {
		dst.Model.Dropout = *src.Dropout
	}
	if src.OutputDim != nil {
		dst.Model.OutputDim = *src.OutputDim
	}
	if src.Optimizer != nil {
		dst.Model.Optimizer = *src.Optimizer
	}
	// lr is the deprecated spelling; learning_rate wins when both are set.
	if src.LR != nil && src.LearningRate == nil {
		dst.Model.LearningRate = *src.LR
	}
	if src.LearningRate != nil {
		dst.Model.LearningRate = *src.LearningRate
	}
	if src.WeightDecay != nil {
		dst.Model.WeightDecay = *src.WeightDecay
	}
}
