// Package dataset loads (description, colour) training instances.
package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/listener/internal/colors"
)

// Instance pairs a free-text colour description with the colour it names.
type Instance struct {
	Input  string
	Output colors.HSV
}

type instanceJSON struct {
	Input  string     `json:"input"`
	Output [3]float64 `json:"output"`
}

func (i Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(instanceJSON{
		Input:  i.Input,
		Output: [3]float64{i.Output.H, i.Output.S, i.Output.V},
	})
}

func (i *Instance) UnmarshalJSON(b []byte) error {
	var raw struct {
		Input  *string   `json:"input"`
		Output []float64 `json:"output"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Input == nil {
		return errors.New("missing input")
	}
	if len(raw.Output) != 3 {
		return fmt.Errorf("output must have 3 components, got %d", len(raw.Output))
	}
	i.Input = *raw.Input
	i.Output = colors.HSV{H: raw.Output[0], S: raw.Output[1], V: raw.Output[2]}
	return nil
}

// LoadJSONLines reads instances from a JSON-lines file.
func LoadJSONLines(path string) ([]Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	insts, err := ReadJSONLines(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return insts, nil
}

// ReadJSONLines decodes one instance per line, skipping blank lines.
// Every instance is validated.
func ReadJSONLines(r io.Reader) ([]Instance, error) {
	var out []Instance
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var inst Instance
		if err := json.Unmarshal(b, &inst); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := inst.Output.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, inst)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteJSONLines encodes instances one per line.
func WriteJSONLines(w io.Writer, insts []Instance) error {
	enc := json.NewEncoder(w)
	for _, inst := range insts {
		if err := enc.Encode(inst); err != nil {
			return err
		}
	}
	return nil
}

// Split shuffles a copy of insts with seed and returns (train, dev) where dev
// holds round(devFraction*len) instances.
func Split(insts []Instance, devFraction float64, seed int64) ([]Instance, []Instance, error) {
	if devFraction < 0 || devFraction >= 1 {
		return nil, nil, fmt.Errorf("dev fraction %v must be in [0,1)", devFraction)
	}
	shuffled := make([]Instance, len(insts))
	copy(shuffled, insts)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	nDev := int(devFraction*float64(len(shuffled)) + 0.5)
	return shuffled[nDev:], shuffled[:nDev], nil
}
