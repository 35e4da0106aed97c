package pose

import "math"

// KickType is the direction of a kick relative to the hip.
type KickType string

const (
	KickFront KickType = "front"
	KickBack  KickType = "back"
	KickSide  KickType = "side"
	KickNone  KickType = "none"
)

// LyingScore is the lying confidence together with the two metrics it was
// derived from.
type LyingScore struct {
	Confidence   float64
	TorsoAngle   float64
	VerticalSpan float64
}

// ScoreLying scores how likely the subject is lying down. The confidence
// is zero unless the torso is close to horizontal and the whole body fits
// in a short vertical band.
func ScoreLying(f Frame, p LyingParams) LyingScore {
	score := LyingScore{
		TorsoAngle:   TorsoAngle(f),
		VerticalSpan: VerticalSpan(f),
	}

	if score.TorsoAngle < p.TorsoAngleMax && score.VerticalSpan < p.VerticalSpanMax {
		sAngle := clip01((p.TorsoAngleMax - score.TorsoAngle) / p.TorsoAngleMax)
		sSpan := clip01((p.VerticalSpanMax - score.VerticalSpan) / p.VerticalSpanMax)
		score.Confidence = clip01(mean(sAngle, sSpan))
	}

	return score
}

// ScorePunch scores a punch thrown with the arm on side s, given the wrist
// speed since the previous frame.
func ScorePunch(f Frame, s Side, wristSpeed float64, p PunchParams) float64 {
	shoulder, elbow, wrist := f[s.shoulder()], f[s.elbow()], f[s.wrist()]

	sAngle := ramp(Angle(shoulder, elbow, wrist), p.AngleMin, p.AngleMax)
	sForward := ramp(s.forward(shoulder, wrist), p.ForwardMin, p.ForwardMax)
	sSpeed := clip01(wristSpeed / p.SpeedMax)
	sHeight := flag(math.Abs(wrist.Y-shoulder.Y) < p.HeightTolerance)

	return clip01(mean(sAngle, sForward, sSpeed, sHeight))
}

// KickDirection classifies the ankle displacement relative to the hip for
// the leg on side s and returns how far past the chosen threshold the
// displacement lies, scaled by ForwardScale. The returned score is not
// clipped.
func KickDirection(f Frame, s Side, p KickParams) (KickType, float64) {
	dx := s.forward(f[s.hip()], f[s.ankle()])

	switch {
	case dx > p.FrontThreshold:
		return KickFront, (dx - p.FrontThreshold) / p.ForwardScale
	case dx < -p.FrontThreshold:
		return KickBack, (-dx - p.FrontThreshold) / p.ForwardScale
	case math.Abs(dx) > p.SideThreshold:
		return KickSide, (math.Abs(dx) - p.SideThreshold) / p.ForwardScale
	}
	return KickNone, 0
}

// KickScore is a kick confidence for one leg and its direction.
type KickScore struct {
	Confidence float64
	Type       KickType
}

// ScoreKick scores a kick with the leg on side s, given the ankle speed
// since the previous frame.
func ScoreKick(f Frame, s Side, ankleSpeed float64, p KickParams) KickScore {
	hip, knee, ankle := f[s.hip()], f[s.knee()], f[s.ankle()]

	kickType, forward := KickDirection(f, s, p)

	sAngle := ramp(Angle(hip, knee, ankle), p.AngleMin, p.AngleMax)
	sForward := clip01(forward)
	sSpeed := clip01(ankleSpeed / p.SpeedMax)
	// smaller y is higher in the image
	sLift := flag(ankle.Y < knee.Y-p.LiftThreshold)

	return KickScore{
		Confidence: clip01(mean(sAngle, sForward, sSpeed, sLift)),
		Type:       kickType,
	}
}

// FirearmScore is the two-arm firearm stance confidence.
type FirearmScore struct {
	Confidence float64
	Left       float64
	Right      float64
	Symmetric  bool
}

// ScoreFirearm scores a steady two-handed aiming stance: both arms nearly
// straight, held at shoulder height, extended forward and not moving. An
// asymmetric stance is penalised rather than rejected.
func ScoreFirearm(f Frame, leftWristSpeed, rightWristSpeed float64, p FirearmParams) FirearmScore {
	arm := func(s Side, speed float64) (float64, float64) {
		shoulder, elbow, wrist := f[s.shoulder()], f[s.elbow()], f[s.wrist()]
		forward := s.forward(shoulder, wrist)

		sAngle := ramp(Angle(shoulder, elbow, wrist), p.AngleMin, p.AngleMax)
		sHeight := flag(math.Abs(wrist.Y-shoulder.Y) < p.HeightTolerance)
		sForward := flag(forward > p.ForwardMin)
		sSpeed := flag(speed < p.SpeedMax)

		return clip01(mean(sAngle, sHeight, sForward, sSpeed)), forward
	}

	left, leftForward := arm(Left, leftWristSpeed)
	right, rightForward := arm(Right, rightWristSpeed)

	score := FirearmScore{
		Left:      left,
		Right:     right,
		Symmetric: math.Abs(leftForward-rightForward) < p.SymmetryTolerance,
	}

	score.Confidence = mean(left, right)
	if !score.Symmetric {
		score.Confidence *= p.AsymmetryPenalty
	}
	score.Confidence = clip01(score.Confidence)

	return score
}
