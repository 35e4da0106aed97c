package pose

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

/* COCO skeleton keypoints
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// NumKeypoints is the number of keypoints in a Frame
	NumKeypoints
)

// ErrInvalidFrame is returned when raw keypoint data does not describe a
// 17 point, 2 coordinate frame.
var ErrInvalidFrame = errors.New("invalid frame")

// Keypoint is an estimated 2D joint location in image coordinates, where
// smaller Y is higher up in the image.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (k Keypoint) vec() r2.Vec {
	return r2.Vec{X: k.X, Y: k.Y}
}

func fromVec(v r2.Vec) Keypoint {
	return Keypoint{X: v.X, Y: v.Y}
}

// Frame is the full ordered set of keypoints for one sampling instant.
type Frame [NumKeypoints]Keypoint

// ParseFrame converts raw [x, y] pairs into a Frame. It rejects anything
// other than exactly 17 points with exactly 2 finite coordinates each.
func ParseFrame(points [][]float64) (Frame, error) {
	var frame Frame

	if len(points) != NumKeypoints {
		return frame, fmt.Errorf("%w: expected %d keypoints, got %d",
			ErrInvalidFrame, NumKeypoints, len(points))
	}

	for i, pt := range points {
		if len(pt) != 2 {
			return frame, fmt.Errorf("%w: keypoint %d has %d coordinates, expected 2",
				ErrInvalidFrame, i, len(pt))
		}
		for _, v := range pt {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return frame, fmt.Errorf("%w: keypoint %d has non-finite coordinate",
					ErrInvalidFrame, i)
			}
		}
		frame[i] = Keypoint{X: pt[0], Y: pt[1]}
	}

	return frame, nil
}

// Side selects the left or right limb of the body.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

func (s Side) pick(left, right int) int {
	if s == Left {
		return left
	}
	return right
}

func (s Side) shoulder() int { return s.pick(LeftShoulder, RightShoulder) }
func (s Side) elbow() int    { return s.pick(LeftElbow, RightElbow) }
func (s Side) wrist() int    { return s.pick(LeftWrist, RightWrist) }
func (s Side) hip() int      { return s.pick(LeftHip, RightHip) }
func (s Side) knee() int     { return s.pick(LeftKnee, RightKnee) }
func (s Side) ankle() int    { return s.pick(LeftAnkle, RightAnkle) }

// forward returns the horizontal displacement of to relative to from,
// signed so that positive means "in front" for this side: the right limb
// extends towards +X in the image and the left limb towards -X.
func (s Side) forward(from, to Keypoint) float64 {
	if s == Left {
		return from.X - to.X
	}
	return to.X - from.X
}
