// SPDX-License-Identifier: MIT

package model

import (
	"fmt"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/validate"
)

// TargetMLPRegressor is the built-in fully-connected regression network.
const TargetMLPRegressor = "metacure.models.MLPRegressor"

// Activations the MLP builder accepts.
var mlpActivations = []string{"relu", "tanh", "gelu", "leaky_relu", "sigmoid"}

func init() {
	Register(TargetMLPRegressor, buildMLPRegressor)
}

// buildMLPRegressor checks the architecture constraints and produces the
// MLP spec. The builder validates independently of the config loader since
// it also accepts directly constructed settings.
func buildMLPRegressor(settings config.ModelSettings) (*Spec, error) {
	v := validate.New()

	if len(settings.HiddenSizes) == 0 {
		v.AddError("HiddenSizes", "must contain at least one layer width", "")
	}
	for i, size := range settings.HiddenSizes {
		if size <= 0 {
			v.AddError(fmt.Sprintf("HiddenSizes[%d]", i), "must be > 0", size)
		}
	}
	v.OneOf("Activation", settings.Activation, mlpActivations)
	if settings.Dropout < 0 || settings.Dropout >= 1 {
		v.AddError("Dropout", "must be in [0.0, 1.0)", settings.Dropout)
	}
	v.Positive("OutputDim", settings.OutputDim)

	if !v.IsValid() {
		return nil, fmt.Errorf("build %s: %w", TargetMLPRegressor, v.Err())
	}

	return &Spec{
		Target:       TargetMLPRegressor,
		HiddenSizes:  append([]int(nil), settings.HiddenSizes...),
		Activation:   settings.Activation,
		Dropout:      settings.Dropout,
		OutputDim:    settings.OutputDim,
		Optimizer:    settings.Optimizer,
		LearningRate: settings.LearningRate,
		WeightDecay:  settings.WeightDecay,
	}, nil
}
