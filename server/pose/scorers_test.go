package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreLying(t *testing.T) {
	p := DefaultParams().Lying

	lying := ScoreLying(lyingFrame(), p)
	assert.Greater(t, lying.Confidence, 0.0)
	// (1 + (120-20)/120) / 2
	assert.InDelta(t, (1+100.0/120)/2, lying.Confidence, 1e-9)

	standing := ScoreLying(standingFrame(), p)
	assert.Equal(t, 0.0, standing.Confidence)
	assert.InDelta(t, 90, standing.TorsoAngle, 1e-9)
}

func TestScoreLying_RequiresBothConditions(t *testing.T) {
	p := DefaultParams().Lying

	// horizontal torso but legs raised far above the body
	f := lyingFrame()
	f[LeftAnkle] = Keypoint{300, -100}
	assert.Equal(t, 0.0, ScoreLying(f, p).Confidence)

	// short vertical span but an upright torso
	f = lyingFrame()
	f[LeftShoulder] = Keypoint{180, 80}
	f[RightShoulder] = Keypoint{180, 80}
	f[LeftHip] = Keypoint{180, 120}
	f[RightHip] = Keypoint{180, 120}
	assert.Equal(t, 0.0, ScoreLying(f, p).Confidence)
}

func TestScorePunch(t *testing.T) {
	p := DefaultParams().Punch

	// straight arm, 80 forward, at shoulder height, fast
	assert.InDelta(t, 0.875, ScorePunch(rightPunchFrame(), Right, 50, p), 1e-3)
	assert.InDelta(t, 0.875, ScorePunch(leftPunchFrame(), Left, 50, p), 1e-3)

	// an arm hanging down scores only on its straightness
	assert.InDelta(t, 0.25, ScorePunch(leftPunchFrame(), Right, 0, p), 1e-3)

	// the same arm extended backwards gets no forward credit
	backwards := standingFrame()
	backwards[RightElbow] = Keypoint{210, 100}
	backwards[RightWrist] = Keypoint{170, 100}
	assert.InDelta(t,
		ScorePunch(rightPunchFrame(), Right, 50, p)-0.25,
		ScorePunch(backwards, Right, 50, p), 1e-9)

	// speed ramps linearly to 30
	slow := ScorePunch(rightPunchFrame(), Right, 0, p)
	half := ScorePunch(rightPunchFrame(), Right, 15, p)
	assert.InDelta(t, 0.125, half-slow, 1e-9)
}

func TestKickDirection(t *testing.T) {
	p := DefaultParams().Kick

	tests := []struct {
		name      string
		side      Side
		ankleX    float64
		wantType  KickType
		wantScore float64
	}{
		{"right front", Right, 245 + 80, KickFront, 0.3},
		{"right back", Right, 245 - 70, KickBack, 0.2},
		{"right none", Right, 245 + 30, KickNone, 0},
		{"right just past front", Right, 245 + 55, KickFront, 0.05},
		{"left front", Left, 215 - 80, KickFront, 0.3},
		{"left back", Left, 215 + 70, KickBack, 0.2},
		{"left none", Left, 215 - 10, KickNone, 0},
		{"far front unclipped", Right, 245 + 300, KickFront, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := standingFrame()
			ankle := tt.side.ankle()
			f[ankle] = Keypoint{tt.ankleX, f[ankle].Y}

			kickType, score := KickDirection(f, tt.side, p)
			assert.Equal(t, tt.wantType, kickType)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
		})
	}
}

func TestKickDirection_SideWhenFrontThresholdIsWider(t *testing.T) {
	p := DefaultParams().Kick
	p.FrontThreshold = 100
	p.SideThreshold = 60

	f := standingFrame()
	f[RightAnkle] = Keypoint{245 - 80, 320}

	kickType, score := KickDirection(f, Right, p)
	assert.Equal(t, KickSide, kickType)
	assert.InDelta(t, 0.2, score, 1e-9)
}

func TestScoreKick(t *testing.T) {
	p := DefaultParams().Kick

	kick := ScoreKick(rightKickFrame(), Right, 192, p)
	assert.Equal(t, KickFront, kick.Type)
	assert.Greater(t, kick.Confidence, 0.5)

	standing := ScoreKick(standingFrame(), Right, 0, p)
	assert.Equal(t, KickNone, standing.Type)
	assert.InDelta(t, 0.25, standing.Confidence, 1e-3)
}

func TestScoreFirearm(t *testing.T) {
	p := DefaultParams().Firearm

	aiming := ScoreFirearm(aimingFrame(), 0, 0, p)
	assert.True(t, aiming.Symmetric)
	assert.Greater(t, aiming.Confidence, 0.6)
	assert.InDelta(t, aiming.Left, aiming.Right, 1e-9)

	// moving wrists lose the steadiness credit
	moving := ScoreFirearm(aimingFrame(), 10, 10, p)
	assert.InDelta(t, aiming.Confidence-0.125, moving.Confidence, 1e-9)
}

func TestScoreFirearm_AsymmetryIsPenalisedNotZeroed(t *testing.T) {
	p := DefaultParams().Firearm

	f := aimingFrame()
	f[RightElbow] = Keypoint{290, 100}
	f[RightWrist] = Keypoint{330, 100}

	score := ScoreFirearm(f, 0, 0, p)
	assert.False(t, score.Symmetric)
	assert.Greater(t, score.Confidence, 0.0)
	assert.InDelta(t, (score.Left+score.Right)/2*p.AsymmetryPenalty, score.Confidence, 1e-9)
}
