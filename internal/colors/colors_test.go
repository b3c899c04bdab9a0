package colors

import (
	"errors"
	"math"
	"testing"
)

func approxRGB(a, b RGB) bool {
	const eps = 1e-9
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func TestHSVToRGB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   HSV
		want RGB
	}{
		{"red", HSV{0, 100, 100}, RGB{255, 0, 0}},
		{"green", HSV{120, 100, 100}, RGB{0, 255, 0}},
		{"blue", HSV{240, 100, 100}, RGB{0, 0, 255}},
		{"full hue wraps", HSV{360, 100, 100}, RGB{255, 0, 0}},
		{"black", HSV{0, 0, 0}, RGB{0, 0, 0}},
		{"mid grey", HSV{200, 0, 50}, RGB{128, 128, 128}},
	}

	for _, tc := range tests {
		got := HSVToRGB(tc.in)
		if !approxRGB(got, tc.want) {
			t.Errorf("%s: HSVToRGB(%+v) = %+v, want %+v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestHSVValidate(t *testing.T) {
	t.Parallel()

	if err := (HSV{359.5, 100, 0}).Validate(); err != nil {
		t.Fatalf("expected valid colour, got %v", err)
	}
	for _, c := range []HSV{{-1, 0, 0}, {361, 0, 0}, {0, 101, 0}, {0, 0, -0.5}, {math.NaN(), 0, 0}} {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be invalid", c)
		}
	}
}

func TestVectorize(t *testing.T) {
	t.Parallel()
	v, err := Uniform(4)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	if v.NumTypes() != 64 {
		t.Fatalf("NumTypes = %d, want 64", v.NumTypes())
	}

	tests := []struct {
		in   RGB
		want int
	}{
		{RGB{0, 0, 0}, 0},
		{RGB{255, 0, 0}, 48},
		{RGB{0, 255, 0}, 12},
		{RGB{0, 0, 255}, 3},
		{RGB{128, 128, 128}, 42},
		{RGB{255, 255, 255}, 63},
		{RGB{63.99, 64, 0}, 4},
	}
	for _, tc := range tests {
		if got := v.Vectorize(tc.in); got != tc.want {
			t.Errorf("Vectorize(%+v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestUnvectorizeReturnsBucketCentre(t *testing.T) {
	t.Parallel()
	v, err := Uniform(4)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}

	got, err := v.Unvectorize(48)
	if err != nil {
		t.Fatalf("Unvectorize: %v", err)
	}
	if want := (RGB{224, 32, 32}); !approxRGB(got, want) {
		t.Fatalf("Unvectorize(48) = %+v, want %+v", got, want)
	}

	for id := 0; id < v.NumTypes(); id++ {
		c, err := v.Unvectorize(id)
		if err != nil {
			t.Fatalf("Unvectorize(%d): %v", id, err)
		}
		if back := v.Vectorize(c); back != id {
			t.Fatalf("bucket centre of %d vectorizes to %d", id, back)
		}
	}
}

func TestUnvectorizeOutOfRange(t *testing.T) {
	t.Parallel()
	v, err := NewVectorizer([3]int{2, 3, 4})
	if err != nil {
		t.Fatalf("NewVectorizer: %v", err)
	}
	for _, id := range []int{-1, 24, 100} {
		if _, err := v.Unvectorize(id); !errors.Is(err, ErrUnknownBucket) {
			t.Errorf("Unvectorize(%d): expected ErrUnknownBucket, got %v", id, err)
		}
	}
	if _, err := v.UnvectorizeAll([]int{0, 24}); err == nil {
		t.Fatal("expected UnvectorizeAll to fail on an invalid id")
	}
}

func TestBucketVolume(t *testing.T) {
	t.Parallel()
	v, err := Uniform(4)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	if got, want := v.BucketVolume(), 256.0*256.0*256.0/64.0; got != want {
		t.Fatalf("BucketVolume = %v, want %v", got, want)
	}
}

func TestNewVectorizerRejectsBadResolution(t *testing.T) {
	t.Parallel()
	for _, res := range [][3]int{{0, 4, 4}, {4, -1, 4}, {4, 4, 257}} {
		if _, err := NewVectorizer(res); err == nil {
			t.Errorf("expected error for resolution %v", res)
		}
	}
}

func TestHex(t *testing.T) {
	t.Parallel()
	if got := (RGB{255, 0, 127.6}).Hex(); got != "#ff007f" {
		t.Fatalf("Hex = %q", got)
	}
}
