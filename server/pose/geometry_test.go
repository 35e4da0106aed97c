package pose

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Keypoint
		want    float64
	}{
		{"right angle", Keypoint{0, 10}, Keypoint{0, 0}, Keypoint{10, 0}, 90},
		{"straight", Keypoint{-10, 0}, Keypoint{0, 0}, Keypoint{10, 0}, 180},
		{"folded", Keypoint{10, 0}, Keypoint{0, 0}, Keypoint{20, 0}, 0},
		{"acute", Keypoint{10, 10}, Keypoint{0, 0}, Keypoint{10, 0}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Angle(tt.a, tt.b, tt.c), 0.01)
		})
	}
}

func TestAngle_DegenerateNeverNaN(t *testing.T) {
	p := Keypoint{5, 5}

	got := Angle(p, p, p)
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, 90, got, 1e-9)

	got = Angle(Keypoint{1, 1}, p, p)
	assert.False(t, math.IsNaN(got))
}

func TestAngle_SymmetricUnderEndpointSwap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	point := func() Keypoint {
		return Keypoint{rng.Float64()*2000 - 1000, rng.Float64()*2000 - 1000}
	}

	for i := 0; i < 500; i++ {
		a, b, c := point(), point(), point()
		assert.InDelta(t, Angle(a, b, c), Angle(c, b, a), 1e-9)
	}
}

func TestSpeed(t *testing.T) {
	assert.Equal(t, 0.0, Speed(nil, Keypoint{100, 100}, 1))
	assert.Equal(t, 0.0, Speed(nil, Keypoint{-3, 7}, 0.01))

	prev := Keypoint{0, 0}
	assert.InDelta(t, 5.0, Speed(&prev, Keypoint{3, 4}, 1), 1e-12)
	assert.InDelta(t, 10.0, Speed(&prev, Keypoint{3, 4}, 0.5), 1e-12)
	assert.Equal(t, 0.0, Speed(&prev, prev, 3))
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, Keypoint{5, 10}, Midpoint(Keypoint{0, 0}, Keypoint{10, 20}))
	assert.Equal(t, Keypoint{-1, 1}, Midpoint(Keypoint{-2, 4}, Keypoint{0, -2}))
}

func TestTorsoAngleAndVerticalSpan(t *testing.T) {
	assert.InDelta(t, 90, TorsoAngle(standingFrame()), 1e-9)
	assert.InDelta(t, 0, TorsoAngle(lyingFrame()), 1e-9)

	assert.InDelta(t, 265, VerticalSpan(standingFrame()), 1e-9)
	assert.InDelta(t, 20, VerticalSpan(lyingFrame()), 1e-9)
}

func rawPoints(f Frame) [][]float64 {
	points := make([][]float64, NumKeypoints)
	for i, kp := range f {
		points[i] = []float64{kp.X, kp.Y}
	}
	return points
}

func TestClip01(t *testing.T) {
	assert.Equal(t, 0.0, clip01(-3))
	assert.Equal(t, 0.25, clip01(0.25))
	assert.Equal(t, 1.0, clip01(math.Inf(1)))
	assert.Equal(t, 0.0, clip01(math.NaN()))
}

func TestParseFrame(t *testing.T) {
	valid := rawPoints(standingFrame())

	frame, err := ParseFrame(valid)
	require.NoError(t, err)
	assert.Equal(t, standingFrame(), frame)

	tests := []struct {
		name   string
		points [][]float64
	}{
		{"empty", nil},
		{"too few", valid[:16]},
		{"too many", append(rawPoints(standingFrame()), []float64{1, 2})},
		{"three coordinates", func() [][]float64 {
			p := rawPoints(standingFrame())
			p[4] = []float64{1, 2, 3}
			return p
		}()},
		{"one coordinate", func() [][]float64 {
			p := rawPoints(standingFrame())
			p[0] = []float64{1}
			return p
		}()},
		{"nan", func() [][]float64 {
			p := rawPoints(standingFrame())
			p[9] = []float64{math.NaN(), 2}
			return p
		}()},
		{"inf", func() [][]float64 {
			p := rawPoints(standingFrame())
			p[16] = []float64{2, math.Inf(-1)}
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.points)
			assert.ErrorIs(t, err, ErrInvalidFrame)
		})
	}
}
