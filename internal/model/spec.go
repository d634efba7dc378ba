// SPDX-License-Identifier: MIT

// Package model maps config target strings to typed architecture specs.
// The training framework that consumes a spec lives outside this module;
// everything here is validation and bookkeeping.
package model

// Spec is the validated, framework-independent description of a model
// architecture. It carries everything an external training framework needs
// to instantiate the network and its optimizer.
type Spec struct {
	Target       string  `json:"target"`
	HiddenSizes  []int   `json:"hidden_sizes"`
	Activation   string  `json:"activation"`
	Dropout      float64 `json:"dropout"`
	OutputDim    int     `json:"output_dim"`
	Optimizer    string  `json:"optimizer"`
	LearningRate float64 `json:"learning_rate"`
	WeightDecay  float64 `json:"weight_decay"`
}

// ParameterEstimate returns the number of trainable parameters a dense
// network with this layout holds for the given input width. Each linear
// layer contributes in*out weights plus out biases.
func (s *Spec) ParameterEstimate(inputDim int) int {
	if inputDim <= 0 {
		return 0
	}
	total := 0
	in := inputDim
	for _, width := range s.HiddenSizes {
		total += in*width + width
		in = width
	}
	total += in*s.OutputDim + s.OutputDim
	return total
}
