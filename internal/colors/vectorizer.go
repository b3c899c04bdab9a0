package colors

import (
	"fmt"
	"math"
)

// Vectorizer quantizes RGB colours into a fixed-resolution grid of buckets.
// Bucket ids are row-major over (R, G, B).
type Vectorizer struct {
	resolution [3]int
	numTypes   int
}

// NewVectorizer returns a vectorizer with the given per-channel resolution.
func NewVectorizer(resolution [3]int) (*Vectorizer, error) {
	n := 1
	for i, r := range resolution {
		if r <= 0 || r > int(channelRange) {
			return nil, fmt.Errorf("resolution[%d]=%d must be in [1,256]", i, r)
		}
		n *= r
	}
	return &Vectorizer{resolution: resolution, numTypes: n}, nil
}

// Uniform is shorthand for NewVectorizer([3]int{res, res, res}).
func Uniform(res int) (*Vectorizer, error) {
	return NewVectorizer([3]int{res, res, res})
}

func (v *Vectorizer) Resolution() [3]int { return v.resolution }

// NumTypes is the number of buckets.
func (v *Vectorizer) NumTypes() int { return v.numTypes }

// BucketVolume is the number of RGB points covered by one bucket.
func (v *Vectorizer) BucketVolume() float64 {
	return channelRange * channelRange * channelRange / float64(v.numTypes)
}

// Vectorize maps a colour to its bucket id.
func (v *Vectorizer) Vectorize(c RGB) int {
	ch := c.channels()
	id := 0
	for i, r := range v.resolution {
		b := int(math.Floor(ch[i] * float64(r) / channelRange))
		b = max(0, min(b, r-1))
		id = id*r + b
	}
	return id
}

func (v *Vectorizer) VectorizeAll(cs []RGB) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = v.Vectorize(c)
	}
	return out
}

// Unvectorize returns the centre of a bucket.
func (v *Vectorizer) Unvectorize(id int) (RGB, error) {
	if id < 0 || id >= v.numTypes {
		return RGB{}, fmt.Errorf("%w: %d (have %d)", ErrUnknownBucket, id, v.numTypes)
	}
	var ch [3]float64
	for i := len(v.resolution) - 1; i >= 0; i-- {
		r := v.resolution[i]
		b := id % r
		id /= r
		ch[i] = (float64(b) + 0.5) * channelRange / float64(r)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

func (v *Vectorizer) UnvectorizeAll(ids []int) ([]RGB, error) {
	out := make([]RGB, len(ids))
	for i, id := range ids {
		c, err := v.Unvectorize(id)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
