package listener

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/samcharles93/listener/internal/safetensors"
	"github.com/samcharles93/listener/internal/vectorize"
)

const checkpointFormat = "listener/v1"

// Save writes the trained parameters and vectorizer state to a safetensors file.
func (l *Learner) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.params == nil {
		return ErrNotTrained
	}

	tokens, err := json.Marshal(l.seqVec.Tokens())
	if err != nil {
		return err
	}
	cfg, err := json.Marshal(l.cfg)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"format":  checkpointFormat,
		"tokens":  string(tokens),
		"max_len": strconv.Itoa(l.d.MaxLen),
		"config":  string(cfg),
	}

	tensors := make([]safetensors.Tensor, 0, len(l.params.order))
	for _, name := range l.params.order {
		pr := l.params.byName[name]
		tensors = append(tensors, safetensors.Tensor{Name: name, Shape: pr.shape, Data: pr.data})
	}
	if err := safetensors.Write(path, tensors, meta); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load restores a learner written by Save.
func Load(path string) (*Learner, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	if got := f.Metadata["format"]; got != checkpointFormat {
		return nil, fmt.Errorf("%s: unsupported checkpoint format %q", path, got)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal([]byte(f.Metadata["config"]), &cfg); err != nil {
		return nil, fmt.Errorf("%s: config metadata: %w", path, err)
	}
	var tokens []string
	if err := json.Unmarshal([]byte(f.Metadata["tokens"]), &tokens); err != nil {
		return nil, fmt.Errorf("%s: token metadata: %w", path, err)
	}
	maxLen, err := strconv.Atoi(f.Metadata["max_len"])
	if err != nil {
		return nil, fmt.Errorf("%s: max_len metadata: %w", path, err)
	}

	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	seqVec, err := vectorize.FromTokens(tokens, maxLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.seqVec = seqVec

	d := dims{
		Vocab:    seqVec.NumTokens(),
		MaxLen:   maxLen,
		Cell:     cfg.CellSize,
		NumTypes: l.colorVec.NumTypes(),
	}
	// The layout fixes the parameter order; the file stores them sorted.
	params := newParameters()
	for _, name := range initParameters(d, 0, 0).order {
		if _, ok := f.Tensor(name); !ok {
			return nil, fmt.Errorf("%s: missing parameter %s", path, name)
		}
		data, info, err := f.ReadTensorF64(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(info.Shape) != 2 {
			return nil, fmt.Errorf("%s: parameter %s is not a matrix", path, name)
		}
		pr := params.add(name, info.Shape[0], info.Shape[1])
		copy(pr.data, data)
	}
	if err := params.checkShapes(d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.params = params
	l.d = d
	return l, nil
}
