package listener

import (
	"errors"
	"fmt"
)

var (
	// ErrNotTrained is returned by prediction calls on a learner with no parameters.
	ErrNotTrained = errors.New("listener has not been trained")
	// ErrNoInstances is returned when an operation is given an empty instance list.
	ErrNoInstances = errors.New("no instances")

	errRetrained = errors.New("listener was retrained while the request was vectorized")
)

// Config holds the hyperparameters of the listener network and its training loop.
type Config struct {
	CellSize        int     `json:"cell_size" yaml:"cell_size"`
	ForgetBias      float64 `json:"forget_bias" yaml:"forget_bias"`
	ColorResolution int     `json:"color_resolution" yaml:"color_resolution"`
	Dropout         float64 `json:"dropout" yaml:"dropout"`
	BatchSize       int     `json:"batch_size" yaml:"batch_size"`
	TrainIters      int     `json:"train_iters" yaml:"train_iters"`
	TrainEpochs     int     `json:"train_epochs" yaml:"train_epochs"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	Seed            int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the hyperparameters used when none are given.
func DefaultConfig() Config {
	return Config{
		CellSize:        20,
		ForgetBias:      20,
		ColorResolution: 4,
		Dropout:         0.2,
		BatchSize:       128,
		TrainIters:      10,
		TrainEpochs:     1,
		LearningRate:    0.01,
	}
}

func (c Config) Validate() error {
	switch {
	case c.CellSize <= 0:
		return fmt.Errorf("cell size must be positive, got %d", c.CellSize)
	case c.ColorResolution <= 0 || c.ColorResolution > 256:
		return fmt.Errorf("colour resolution must be in [1,256], got %d", c.ColorResolution)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0,1), got %v", c.Dropout)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.TrainIters < 1:
		return fmt.Errorf("train iters must be at least 1, got %d", c.TrainIters)
	case c.TrainEpochs < 1:
		return fmt.Errorf("train epochs must be at least 1, got %d", c.TrainEpochs)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	return nil
}
