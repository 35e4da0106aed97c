package pose

import (
	"fmt"
	"strings"
)

// Params holds every tunable value used by the scorers and the arbitrator.
// Distances are in image coordinate units and speeds in units per elapsed
// time unit.
type Params struct {
	Punch      PunchParams     `json:"punch"`
	Kick       KickParams      `json:"kick"`
	Lying      LyingParams     `json:"lying"`
	Firearm    FirearmParams   `json:"firearm"`
	Thresholds ThresholdParams `json:"thresholds"`
	// MaxCoordinate bounds the absolute value of every keypoint coordinate
	// so that distances, speeds and angles stay finite
	MaxCoordinate float64 `json:"max_coordinate"`
}

// PunchParams configures the per-arm punch scorer.
type PunchParams struct {
	// AngleMin and AngleMax bound the shoulder-elbow-wrist angle ramp
	AngleMin float64 `json:"angle_min"`
	AngleMax float64 `json:"angle_max"`
	// ForwardMin and ForwardMax bound the wrist forward displacement ramp
	ForwardMin float64 `json:"forward_min"`
	ForwardMax float64 `json:"forward_max"`
	// SpeedMax is the wrist speed at which the speed sub-score saturates
	SpeedMax float64 `json:"speed_max"`
	// HeightTolerance is the maximum wrist to shoulder vertical offset for
	// the arm to count as held at shoulder height
	HeightTolerance float64 `json:"height_tolerance"`
}

// KickParams configures the per-leg kick scorer.
type KickParams struct {
	AngleMin float64 `json:"angle_min"`
	AngleMax float64 `json:"angle_max"`
	SpeedMax float64 `json:"speed_max"`
	// LiftThreshold is how far above the knee the ankle must be
	LiftThreshold float64 `json:"lift_threshold"`
	// FrontThreshold is the ankle to hip displacement beyond which a kick
	// is classified front or back
	FrontThreshold float64 `json:"front_threshold"`
	// SideThreshold is the absolute displacement beyond which a kick that
	// is neither front nor back is classified side
	SideThreshold float64 `json:"side_threshold"`
	// ForwardScale divides the displacement past the chosen threshold
	ForwardScale float64 `json:"forward_scale"`
}

// LyingParams configures the lying scorer.
type LyingParams struct {
	TorsoAngleMax   float64 `json:"torso_angle_max"`
	VerticalSpanMax float64 `json:"vertical_span_max"`
}

// FirearmParams configures the two-arm firearm stance scorer.
type FirearmParams struct {
	AngleMin        float64 `json:"angle_min"`
	AngleMax        float64 `json:"angle_max"`
	HeightTolerance float64 `json:"height_tolerance"`
	ForwardMin      float64 `json:"forward_min"`
	// SpeedMax is the wrist speed below which the stance counts as held
	SpeedMax float64 `json:"speed_max"`
	// SymmetryTolerance is the largest difference between the two arms'
	// forward extension still considered symmetric
	SymmetryTolerance float64 `json:"symmetry_tolerance"`
	// AsymmetryPenalty multiplies the confidence of an asymmetric stance
	AsymmetryPenalty float64 `json:"asymmetry_penalty"`
}

// ThresholdParams are the minimum confidences a category must exceed to
// be considered by the arbitrator.
type ThresholdParams struct {
	Punch   float64 `json:"punch"`
	Kick    float64 `json:"kick"`
	Lying   float64 `json:"lying"`
	Firearm float64 `json:"firearm"`
}

// DefaultParams returns Params configured with the default values:
// - Punch: elbow 140-180 deg, forward 10-70, speed 30, height 60
// - Kick: knee 140-180 deg, speed 40, lift 20, front/back 50, side 60
// - Lying: torso below 30 deg, vertical span below 120
// - Firearm: elbow 150-180 deg, height 40, forward 20, speed 5,
// symmetry 25 with a 0.7 penalty
// - Thresholds: punch 0.55, kick 0.50, lying 0.45, firearm 0.60
// - Coordinates within +/-1e5
func DefaultParams() Params {
	return Params{
		Punch: PunchParams{
			AngleMin:        140,
			AngleMax:        180,
			ForwardMin:      10,
			ForwardMax:      70,
			SpeedMax:        30,
			HeightTolerance: 60,
		},
		Kick: KickParams{
			AngleMin:       140,
			AngleMax:       180,
			SpeedMax:       40,
			LiftThreshold:  20,
			FrontThreshold: 50,
			SideThreshold:  60,
			ForwardScale:   100,
		},
		Lying: LyingParams{
			TorsoAngleMax:   30,
			VerticalSpanMax: 120,
		},
		Firearm: FirearmParams{
			AngleMin:          150,
			AngleMax:          180,
			HeightTolerance:   40,
			ForwardMin:        20,
			SpeedMax:          5,
			SymmetryTolerance: 25,
			AsymmetryPenalty:  0.7,
		},
		Thresholds: ThresholdParams{
			Punch:   0.55,
			Kick:    0.50,
			Lying:   0.45,
			Firearm: 0.60,
		},
		MaxCoordinate: 1e5,
	}
}

// Validate checks that every ramp has a positive width and that every
// threshold and penalty lies in [0, 1].
func (p Params) Validate() error {
	var errors []string

	span := func(name string, lo, hi float64) {
		if hi <= lo {
			errors = append(errors, fmt.Sprintf("%s: max must be greater than min", name))
		}
	}
	positive := func(name string, v float64) {
		if v <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive", name))
		}
	}
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errors = append(errors, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}

	span("punch angle", p.Punch.AngleMin, p.Punch.AngleMax)
	span("punch forward", p.Punch.ForwardMin, p.Punch.ForwardMax)
	positive("punch speed max", p.Punch.SpeedMax)
	positive("punch height tolerance", p.Punch.HeightTolerance)

	span("kick angle", p.Kick.AngleMin, p.Kick.AngleMax)
	positive("kick speed max", p.Kick.SpeedMax)
	positive("kick forward scale", p.Kick.ForwardScale)
	positive("kick front threshold", p.Kick.FrontThreshold)
	positive("kick side threshold", p.Kick.SideThreshold)

	positive("lying torso angle max", p.Lying.TorsoAngleMax)
	positive("lying vertical span max", p.Lying.VerticalSpanMax)

	span("firearm angle", p.Firearm.AngleMin, p.Firearm.AngleMax)
	positive("firearm height tolerance", p.Firearm.HeightTolerance)
	positive("firearm speed max", p.Firearm.SpeedMax)
	positive("firearm symmetry tolerance", p.Firearm.SymmetryTolerance)
	unit("firearm asymmetry penalty", p.Firearm.AsymmetryPenalty)

	unit("punch threshold", p.Thresholds.Punch)
	unit("kick threshold", p.Thresholds.Kick)
	unit("lying threshold", p.Thresholds.Lying)
	unit("firearm threshold", p.Thresholds.Firearm)

	positive("max coordinate", p.MaxCoordinate)

	if len(errors) > 0 {
		return fmt.Errorf("invalid classifier params: %s", strings.Join(errors, ", "))
	}
	return nil
}
