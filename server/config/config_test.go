package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.55, cfg.Classifier.Params.Thresholds.Punch)
	assert.Equal(t, 0.50, cfg.Classifier.Params.Thresholds.Kick)
	assert.Equal(t, 0.45, cfg.Classifier.Params.Thresholds.Lying)
	assert.Equal(t, 0.60, cfg.Classifier.Params.Thresholds.Firearm)
	assert.Equal(t, 25.0, cfg.Classifier.Params.Firearm.SymmetryTolerance)
	assert.Equal(t, 1.0, cfg.Classifier.DefaultElapsed)
	assert.Equal(t, 33*time.Millisecond, cfg.Classifier.FrameInterval)
	assert.Equal(t, 0.8, cfg.Alert.ConfidenceThreshold)
	assert.Equal(t, 5*time.Second, cfg.Alert.Cooldown)

	require.NoError(t, cfg.ValidateConfig(zap.NewNop()))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSE_FIREARM_THRESHOLD", "0.7")
	t.Setenv("POSE_FIREARM_SYMMETRY_TOLERANCE", "20")
	t.Setenv("ALERT_COOLDOWN", "30s")
	t.Setenv("DATA_DIR", "/var/lib/pose")
	t.Setenv("POSE_KICK_SPEED_MAX", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.7, cfg.Classifier.Params.Thresholds.Firearm)
	assert.Equal(t, 20.0, cfg.Classifier.Params.Firearm.SymmetryTolerance)
	assert.Equal(t, 30*time.Second, cfg.Alert.Cooldown)
	assert.Equal(t, "/var/lib/pose/logs/suspicious_poses.json", cfg.Storage.AlertsFile)
	assert.Equal(t, "/var/lib/pose/imgs", cfg.Storage.SnapshotDir)
	assert.Equal(t, 40.0, cfg.Classifier.Params.Kick.SpeedMax, "unparsable values fall back to defaults")
}

func TestValidateConfig_CollectsErrors(t *testing.T) {
	cfg := LoadConfig()
	cfg.Server.Port = 0
	cfg.Classifier.DefaultElapsed = 0
	cfg.Classifier.Params.Thresholds.Lying = 2
	cfg.Alert.ConfidenceThreshold = 1.5
	cfg.Notify.AMQPURL = "amqp://localhost"
	cfg.Notify.AMQPQueue = ""

	err := cfg.ValidateConfig(zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port")
	assert.Contains(t, err.Error(), "default elapsed")
	assert.Contains(t, err.Error(), "lying threshold")
	assert.Contains(t, err.Error(), "alert confidence threshold")
	assert.Contains(t, err.Error(), "AMQP queue name")
}
