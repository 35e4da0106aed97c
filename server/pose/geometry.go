package pose

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// angleEpsilon keeps Angle defined when one of the rays has zero length.
const angleEpsilon = 1e-6

// Angle returns the angle in degrees at vertex b between the rays b->a and
// b->c. Coincident points yield 90 degrees rather than NaN.
func Angle(a, b, c Keypoint) float64 {
	ba := r2.Sub(a.vec(), b.vec())
	bc := r2.Sub(c.vec(), b.vec())

	denom := r2.Norm(ba)*r2.Norm(bc) + angleEpsilon
	cos := clamp(r2.Dot(ba, bc)/denom, -1, 1)

	return math.Acos(cos) * 180 / math.Pi
}

// Speed returns the distance travelled from prev to curr divided by dt.
// A nil prev means no previous observation and reads as zero speed.
func Speed(prev *Keypoint, curr Keypoint, dt float64) float64 {
	if prev == nil {
		return 0
	}
	return r2.Norm(r2.Sub(curr.vec(), prev.vec())) / dt
}

// Midpoint returns the elementwise average of a and b.
func Midpoint(a, b Keypoint) Keypoint {
	return fromVec(r2.Scale(0.5, r2.Add(a.vec(), b.vec())))
}

// TorsoAngle returns the absolute angle in degrees between the horizontal
// axis and the vector from the shoulder midpoint to the hip midpoint. An
// upright torso reads close to 90, a horizontal one close to 0 or 180.
func TorsoAngle(f Frame) float64 {
	shoulders := Midpoint(f[LeftShoulder], f[RightShoulder])
	hips := Midpoint(f[LeftHip], f[RightHip])
	v := r2.Sub(hips.vec(), shoulders.vec())

	return math.Abs(math.Atan2(v.Y, v.X) * 180 / math.Pi)
}

// VerticalSpan returns the distance between the highest and lowest
// keypoint in the frame.
func VerticalSpan(f Frame) float64 {
	ys := make([]float64, len(f))
	for i, kp := range f {
		ys[i] = kp.Y
	}
	return floats.Max(ys) - floats.Min(ys)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// clip01 clamps v to [0, 1], mapping NaN to 0.
func clip01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}

// ramp maps v linearly from [lo, hi] onto [0, 1], clipped at both ends.
func ramp(v, lo, hi float64) float64 {
	return clip01((v - lo) / (hi - lo))
}

// flag returns the flat contribution of a boolean sub-score.
func flag(ok bool) float64 {
	if ok {
		return flagScore
	}
	return 0
}

// flagScore is what a satisfied boolean condition contributes to a mean of
// sub-scores.
const flagScore = 0.5

func mean(values ...float64) float64 {
	return floats.Sum(values) / float64(len(values))
}
