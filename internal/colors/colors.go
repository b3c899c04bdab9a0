package colors

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownBucket is returned when a bucket id is outside the vectorizer grid.
var ErrUnknownBucket = errors.New("unknown colour bucket")

// channelRange is the width of a single RGB channel.
const channelRange = 256.0

// HSV is a colour in the units used by the training data:
// hue in [0,360], saturation and value in [0,100].
type HSV struct {
	H float64
	S float64
	V float64
}

// Validate reports whether every component is within its range.
func (c HSV) Validate() error {
	if c.H < 0 || c.H > 360 || math.IsNaN(c.H) {
		return fmt.Errorf("hue %v out of range [0,360]", c.H)
	}
	if c.S < 0 || c.S > 100 || math.IsNaN(c.S) {
		return fmt.Errorf("saturation %v out of range [0,100]", c.S)
	}
	if c.V < 0 || c.V > 100 || math.IsNaN(c.V) {
		return fmt.Errorf("value %v out of range [0,100]", c.V)
	}
	return nil
}

// RGB is a colour with each channel in [0,255]. Channels are not rounded.
type RGB struct {
	R float64
	G float64
	B float64
}

func (c RGB) channels() [3]float64 {
	return [3]float64{c.R, c.G, c.B}
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", clampByte(c.R), clampByte(c.G), clampByte(c.B))
}

func clampByte(v float64) int {
	return int(math.Max(0, math.Min(255, math.Floor(v))))
}

// HSVToRGB converts an HSV colour to RGB. Each [0,1] channel is scaled by 256
// and capped at 255 so that full intensity lands in the last bucket.
func HSVToRGB(c HSV) RGB {
	hue := math.Mod(c.H, 360)
	col := colorful.Hsv(hue, c.S/100.0, c.V/100.0)
	return RGB{
		R: math.Min(col.R*channelRange, 255),
		G: math.Min(col.G*channelRange, 255),
		B: math.Min(col.B*channelRange, 255),
	}
}
