package pose

import (
	"errors"
	"fmt"
	"math"
)

// Label is the action reported for a frame.
type Label string

const (
	LabelNeutral    Label = "neutral"
	LabelLeftPunch  Label = "left_punch"
	LabelRightPunch Label = "right_punch"
	LabelLeftKick   Label = "left_kick"
	LabelRightKick  Label = "right_kick"
	LabelLying      Label = "lying"
	LabelFirearm    Label = "firearm"
)

// Labels lists every scored category in arbitration order.
var Labels = []Label{
	LabelLeftPunch,
	LabelRightPunch,
	LabelLeftKick,
	LabelRightKick,
	LabelLying,
	LabelFirearm,
}

// MinElapsed is the smallest elapsed time accepted by Classify. Smaller
// values would let a speed overflow to infinity.
const MinElapsed = 1e-6

// ErrInvalidElapsed is returned when the elapsed time since the previous
// frame is not finite or is below MinElapsed.
var ErrInvalidElapsed = errors.New("elapsed time must be finite and at least 1e-6")

// Confidences holds the [0,1] confidence of every category.
type Confidences struct {
	LeftPunch  float64 `json:"left_punch"`
	RightPunch float64 `json:"right_punch"`
	LeftKick   float64 `json:"left_kick"`
	RightKick  float64 `json:"right_kick"`
	Lying      float64 `json:"lying"`
	Firearm    float64 `json:"firearm"`
}

// Get returns the confidence for label, or zero for neutral and unknown
// labels.
func (c Confidences) Get(label Label) float64 {
	switch label {
	case LabelLeftPunch:
		return c.LeftPunch
	case LabelRightPunch:
		return c.RightPunch
	case LabelLeftKick:
		return c.LeftKick
	case LabelRightKick:
		return c.RightKick
	case LabelLying:
		return c.Lying
	case LabelFirearm:
		return c.Firearm
	}
	return 0
}

// Top returns the category with the highest confidence regardless of
// thresholds. Ties go to the earlier category in arbitration order.
func (c Confidences) Top() (Label, float64) {
	best, bestConf := Labels[0], c.Get(Labels[0])
	for _, label := range Labels[1:] {
		if conf := c.Get(label); conf > bestConf {
			best, bestConf = label, conf
		}
	}
	return best, bestConf
}

// Diagnostics carries the intermediate measurements behind a Result.
type Diagnostics struct {
	LeftKickType    KickType `json:"left_kick_type"`
	RightKickType   KickType `json:"right_kick_type"`
	TorsoAngleDeg   float64  `json:"torso_angle_deg"`
	VerticalSpanPx  float64  `json:"vertical_span_px"`
	LeftWristSpeed  float64  `json:"left_wrist_speed"`
	RightWristSpeed float64  `json:"right_wrist_speed"`
	ArmSymmetry     bool     `json:"arm_symmetry"`
}

// Result is the outcome of classifying one frame.
type Result struct {
	Label       Label       `json:"label"`
	Confidences Confidences `json:"confidences"`
	Extra       Diagnostics `json:"extra"`
}

// Classifier scores frames against every action category. It holds no
// per-subject state and is safe for concurrent use.
type Classifier struct {
	params Params
}

// NewClassifier returns a Classifier using p, which must be valid.
func NewClassifier(p Params) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{params: p}, nil
}

// NewDefaultClassifier returns a Classifier using DefaultParams.
func NewDefaultClassifier() *Classifier {
	return &Classifier{params: DefaultParams()}
}

// Params returns the parameters the classifier was built with.
func (c *Classifier) Params() Params {
	return c.params
}

// Classify scores frame using the joint positions remembered in mem and
// dt, the time elapsed since the frame that populated mem. Once scoring is
// complete mem is overwritten with this frame's wrists and ankles, so the
// next call measures speed against this one. A nil mem classifies without
// any history. mem is left untouched when an error is returned.
//
// Frames with a coordinate outside +/-MaxCoordinate fail with
// ErrInvalidFrame.
func (c *Classifier) Classify(frame Frame, mem *TemporalMemory, dt float64) (Result, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < MinElapsed {
		return Result{}, fmt.Errorf("%w: got %v", ErrInvalidElapsed, dt)
	}
	if err := c.checkBounds(frame); err != nil {
		return Result{}, err
	}

	var prev TemporalMemory
	if mem != nil {
		prev = *mem
	}

	wristSpeed := func(s Side) float64 { return Speed(prev.Wrist(s), frame[s.wrist()], dt) }
	ankleSpeed := func(s Side) float64 { return Speed(prev.Ankle(s), frame[s.ankle()], dt) }

	leftWristSpeed, rightWristSpeed := wristSpeed(Left), wristSpeed(Right)
	leftAnkleSpeed, rightAnkleSpeed := ankleSpeed(Left), ankleSpeed(Right)

	p := c.params
	leftKick := ScoreKick(frame, Left, leftAnkleSpeed, p.Kick)
	rightKick := ScoreKick(frame, Right, rightAnkleSpeed, p.Kick)
	lying := ScoreLying(frame, p.Lying)
	firearm := ScoreFirearm(frame, leftWristSpeed, rightWristSpeed, p.Firearm)

	confidences := Confidences{
		LeftPunch:  ScorePunch(frame, Left, leftWristSpeed, p.Punch),
		RightPunch: ScorePunch(frame, Right, rightWristSpeed, p.Punch),
		LeftKick:   leftKick.Confidence,
		RightKick:  rightKick.Confidence,
		Lying:      lying.Confidence,
		Firearm:    firearm.Confidence,
	}

	result := Result{
		Label:       c.arbitrate(confidences),
		Confidences: confidences,
		Extra: Diagnostics{
			LeftKickType:    leftKick.Type,
			RightKickType:   rightKick.Type,
			TorsoAngleDeg:   lying.TorsoAngle,
			VerticalSpanPx:  lying.VerticalSpan,
			LeftWristSpeed:  leftWristSpeed,
			RightWristSpeed: rightWristSpeed,
			ArmSymmetry:     firearm.Symmetric,
		},
	}

	if mem != nil {
		mem.Observe(frame)
	}

	return result, nil
}

func (c *Classifier) checkBounds(frame Frame) error {
	limit := c.params.MaxCoordinate
	for i, kp := range frame {
		if !(math.Abs(kp.X) <= limit && math.Abs(kp.Y) <= limit) {
			return fmt.Errorf("%w: keypoint %d lies outside +/-%g",
				ErrInvalidFrame, i, limit)
		}
	}
	return nil
}

// Threshold returns the minimum confidence label must exceed to be
// reported.
func (c *Classifier) Threshold(label Label) float64 {
	t := c.params.Thresholds
	switch label {
	case LabelLeftPunch, LabelRightPunch:
		return t.Punch
	case LabelLeftKick, LabelRightKick:
		return t.Kick
	case LabelLying:
		return t.Lying
	case LabelFirearm:
		return t.Firearm
	}
	return math.Inf(1)
}

// arbitrate picks the most confident category exceeding its threshold,
// keeping the earliest on ties, or neutral when none qualifies.
func (c *Classifier) arbitrate(conf Confidences) Label {
	label, best := LabelNeutral, 0.0
	for _, candidate := range Labels {
		v := conf.Get(candidate)
		if math.IsNaN(v) || v <= c.Threshold(candidate) {
			continue
		}
		if label == LabelNeutral || v > best {
			label, best = candidate, v
		}
	}
	return label
}
