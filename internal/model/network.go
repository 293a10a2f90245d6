package model

import (
	"fmt"
	"math"
)

// Activations supported by the network.
const (
	activationReLU   = "relu"
	activationLinear = "linear"
)

// hiddenLayers is the fixed network topology: two hidden layers plus the
// linear output row.
const hiddenLayers = 2

type layerSpec struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type networkSpec struct {
	Layers []layerSpec `json:"layers"`
}

// network is a dense feed-forward regression network evaluated in pure
// inference mode. Weights are indexed [neuron][input].
type network struct {
	layers []layerSpec
	inDim  int
}

func newNetwork(spec networkSpec, inputDim int) (*network, error) {
	if len(spec.Layers) != hiddenLayers+1 {
		return nil, fmt.Errorf("network must have exactly %d hidden layers plus a linear output, got %d layers",
			hiddenLayers, len(spec.Layers))
	}

	prev := inputDim
	for i, l := range spec.Layers {
		width := len(l.Weights)
		if width == 0 {
			return nil, fmt.Errorf("layer %d: no neurons", i)
		}
		if len(l.Bias) != width {
			return nil, fmt.Errorf("layer %d: %d bias terms for %d neurons", i, len(l.Bias), width)
		}
		for j, row := range l.Weights {
			if len(row) != prev {
				return nil, fmt.Errorf("layer %d neuron %d: %d weights for %d inputs", i, j, len(row), prev)
			}
			for _, w := range row {
				if math.IsNaN(w) || math.IsInf(w, 0) {
					return nil, fmt.Errorf("layer %d neuron %d: non-finite weight", i, j)
				}
			}
		}
		for j, b := range l.Bias {
			if math.IsNaN(b) || math.IsInf(b, 0) {
				return nil, fmt.Errorf("layer %d neuron %d: non-finite bias", i, j)
			}
		}

		isOutput := i == len(spec.Layers)-1
		if isOutput {
			if l.Activation != activationLinear {
				return nil, fmt.Errorf("output layer activation must be linear, got %q", l.Activation)
			}
			if width != 1 {
				return nil, fmt.Errorf("output layer must have one neuron, got %d", width)
			}
		} else if l.Activation != activationReLU {
			return nil, fmt.Errorf("hidden layer %d activation must be relu, got %q", i, l.Activation)
		}
		prev = width
	}

	return &network{layers: spec.Layers, inDim: inputDim}, nil
}

// forward runs the network on one input vector. The caller guarantees the
// input length matches inDim.
func (n *network) forward(input []float64) float64 {
	current := input
	for i, l := range n.layers {
		next := make([]float64, len(l.Weights))
		for j, row := range l.Weights {
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * current[k]
			}
			if i < len(n.layers)-1 {
				sum = relu(sum)
			}
			next[j] = sum
		}
		current = next
	}
	return current[0]
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
