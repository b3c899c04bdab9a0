package safetensors

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

// writeRaw creates a safetensors file from a hand-built header and data blob.
func writeRaw(t *testing.T, path string, header map[string]any, data []byte) {
	t.Helper()
	headerBytes, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		t.Fatalf("write header len: %v", err)
	}
	if _, err := f.Write(headerBytes); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write data: %v", err)
	}
}

func TestWriteThenOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "listener.safetensors")

	tensors := []Tensor{
		{Name: "w", Shape: []int{2, 3}, Data: []float64{1, -2, 3.5, 0, 1e-9, math.Pi}},
		{Name: "b", Shape: []int{1, 2}, Data: []float64{20, 20}},
	}
	meta := map[string]string{"cell_size": "20", "tokens": `["<s>","</s>"]`}
	if err := Write(path, tensors, meta); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.DataStart%8 != 0 {
		t.Fatalf("data section not aligned: %d", f.DataStart)
	}
	if len(f.Tensors) != 2 {
		t.Fatalf("expected 2 tensors, got %d", len(f.Tensors))
	}
	if f.Metadata["cell_size"] != "20" || f.Metadata["tokens"] != meta["tokens"] {
		t.Fatalf("unexpected metadata: %v", f.Metadata)
	}

	for _, want := range tensors {
		got, info, err := f.ReadTensorF64(want.Name)
		if err != nil {
			t.Fatalf("ReadTensorF64(%s): %v", want.Name, err)
		}
		if info.DType != "F64" {
			t.Fatalf("%s: dtype %q, want F64", want.Name, info.DType)
		}
		if len(info.Shape) != len(want.Shape) || info.Shape[0] != want.Shape[0] || info.Shape[1] != want.Shape[1] {
			t.Fatalf("%s: shape %v, want %v", want.Name, info.Shape, want.Shape)
		}
		for i := range want.Data {
			if got[i] != want.Data[i] {
				t.Fatalf("%s[%d] = %v, want %v", want.Name, i, got[i], want.Data[i])
			}
		}
	}
}

func TestWriteRejectsBadTensors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		tensors []Tensor
	}{
		{"size mismatch", []Tensor{{Name: "a", Shape: []int{2}, Data: []float64{1}}}},
		{"empty shape", []Tensor{{Name: "a", Data: []float64{1}}}},
		{"duplicate", []Tensor{{Name: "a", Shape: []int{1}, Data: []float64{1}}, {Name: "a", Shape: []int{1}, Data: []float64{2}}}},
		{"reserved name", []Tensor{{Name: metadataKey, Shape: []int{1}, Data: []float64{1}}}},
	}
	for _, tc := range tests {
		if err := Write(filepath.Join(dir, tc.name), tc.tensors, nil); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestOpenNonexistentFile(t *testing.T) {
	t.Parallel()
	_, err := Open("/nonexistent/file.safetensors")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestOpenTruncatedFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "truncated.safetensors")

	// Too short for the header length.
	if err := os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestOpenHeaderLongerThanFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "huge.safetensors")

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], 1<<40)
	if err := os.WriteFile(path, lenBuf[:], 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for oversized header length")
	}
}

func TestOpenInvalidJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "invalid.safetensors")

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], 12)
	data := append(lenBuf[:], []byte("not valid js")...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for invalid JSON header")
	}
}

func TestInvalidDataOffsets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad_offsets.safetensors")
	writeRaw(t, path, map[string]any{
		"bad_tensor": map[string]any{
			"dtype":        "F64",
			"shape":        []int{1},
			"data_offsets": []int64{0},
		},
	}, nil)

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for invalid data_offsets")
	}
}

func TestReadTensorF32Widened(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "f32.safetensors")

	values := []float32{1.0, 2.5, -3.0}
	data := make([]byte, 12)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	writeRaw(t, path, map[string]any{
		"__metadata__": map[string]string{"format": "pt"},
		"test": map[string]any{
			"dtype":        "F32",
			"shape":        []int{3},
			"data_offsets": []int64{0, 12},
		},
	}, data)

	sf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(sf.Tensors) != 1 {
		t.Fatalf("expected metadata to be excluded from tensors, got %d", len(sf.Tensors))
	}
	got, _, err := sf.ReadTensorF64("test")
	if err != nil {
		t.Fatalf("ReadTensorF64: %v", err)
	}
	for i, v := range values {
		if got[i] != float64(v) {
			t.Fatalf("element %d: got %v, want %v", i, got[i], v)
		}
	}
}

func TestReadTensorErrors(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "errors.safetensors")
	writeRaw(t, path, map[string]any{
		"ints": map[string]any{
			"dtype":        "I32",
			"shape":        []int{2},
			"data_offsets": []int64{0, 8},
		},
		"short": map[string]any{
			"dtype":        "F64",
			"shape":        []int{4},
			"data_offsets": []int64{8, 16},
		},
	}, make([]byte, 16))

	sf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := sf.Tensor("missing"); ok {
		t.Fatal("expected missing tensor lookup to fail")
	}
	if _, _, err := sf.ReadTensorF64("missing"); err == nil {
		t.Fatal("expected error for missing tensor")
	}
	if _, _, err := sf.ReadTensorF64("ints"); err == nil {
		t.Fatal("expected error for unsupported dtype")
	}
	if _, _, err := sf.ReadTensorF64("short"); err == nil {
		t.Fatal("expected error for size mismatch")
	}
}
