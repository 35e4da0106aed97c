package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/san-kum/pose-sentinel/server/pose"
	"go.uber.org/zap"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Classifier ClassifierConfig `json:"classifier"`
	Session    SessionConfig    `json:"session"`
	Alert      AlertConfig      `json:"alert"`
	Storage    StorageConfig    `json:"storage"`
	Notify     NotifyConfig     `json:"notify"`
	Logging    LoggingConfig    `json:"logging"`
}

type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

type SecurityConfig struct {
	JWTSecretKey      string        `json:"jwt_secret_key"`
	AdminPasswordHash string        `json:"-"`
	TokenTTL          time.Duration `json:"token_ttl"`
	AllowedOrigins    []string      `json:"allowed_origins"`
	RateLimitRPS      int           `json:"rate_limit_rps"`
	RateLimitBurst    int           `json:"rate_limit_burst"`
	MaxRequestSize    int64         `json:"max_request_size"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	EnableHTTPS       bool          `json:"enable_https"`
	CertFile          string        `json:"cert_file"`
	KeyFile           string        `json:"key_file"`
}

// ClassifierConfig carries the classifier tunables. Elapsed time is
// measured in frames: timestamp deltas are divided by FrameInterval, and
// DefaultElapsed is used when a request carries neither an elapsed time
// nor a usable timestamp.
type ClassifierConfig struct {
	Params         pose.Params   `json:"params"`
	DefaultElapsed float64       `json:"default_elapsed"`
	FrameInterval  time.Duration `json:"frame_interval"`
}

type SessionConfig struct {
	IdleTTL     time.Duration `json:"idle_ttl"`
	MaxSessions int           `json:"max_sessions"`
}

type AlertConfig struct {
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	Cooldown            time.Duration `json:"cooldown"`
	QueueSize           int           `json:"queue_size"`
	Workers             int           `json:"workers"`
}

type StorageConfig struct {
	DataDir     string `json:"data_dir"`
	AlertsFile  string `json:"alerts_file"`
	SnapshotDir string `json:"snapshot_dir"`
}

type NotifyConfig struct {
	WebhookURL string        `json:"webhook_url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
	AMQPURL    string        `json:"amqp_url"`
	AMQPQueue  string        `json:"amqp_queue"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads configuration from the environment, after loading a
// .env file from the working directory when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	defaults := pose.DefaultParams()
	params := defaults
	params.Thresholds = pose.ThresholdParams{
		Punch:   getEnvAsFloat("POSE_PUNCH_THRESHOLD", defaults.Thresholds.Punch),
		Kick:    getEnvAsFloat("POSE_KICK_THRESHOLD", defaults.Thresholds.Kick),
		Lying:   getEnvAsFloat("POSE_LYING_THRESHOLD", defaults.Thresholds.Lying),
		Firearm: getEnvAsFloat("POSE_FIREARM_THRESHOLD", defaults.Thresholds.Firearm),
	}
	params.Punch.HeightTolerance = getEnvAsFloat("POSE_PUNCH_HEIGHT_TOLERANCE", defaults.Punch.HeightTolerance)
	params.Punch.SpeedMax = getEnvAsFloat("POSE_PUNCH_SPEED_MAX", defaults.Punch.SpeedMax)
	params.Kick.SpeedMax = getEnvAsFloat("POSE_KICK_SPEED_MAX", defaults.Kick.SpeedMax)
	params.Kick.LiftThreshold = getEnvAsFloat("POSE_KICK_LIFT_THRESHOLD", defaults.Kick.LiftThreshold)
	params.Kick.FrontThreshold = getEnvAsFloat("POSE_KICK_FRONT_THRESHOLD", defaults.Kick.FrontThreshold)
	params.Kick.SideThreshold = getEnvAsFloat("POSE_KICK_SIDE_THRESHOLD", defaults.Kick.SideThreshold)
	params.Lying.TorsoAngleMax = getEnvAsFloat("POSE_LYING_TORSO_ANGLE_MAX", defaults.Lying.TorsoAngleMax)
	params.Lying.VerticalSpanMax = getEnvAsFloat("POSE_LYING_VERTICAL_SPAN_MAX", defaults.Lying.VerticalSpanMax)
	params.Firearm.HeightTolerance = getEnvAsFloat("POSE_FIREARM_HEIGHT_TOLERANCE", defaults.Firearm.HeightTolerance)
	params.Firearm.SpeedMax = getEnvAsFloat("POSE_FIREARM_SPEED_MAX", defaults.Firearm.SpeedMax)
	params.Firearm.SymmetryTolerance = getEnvAsFloat("POSE_FIREARM_SYMMETRY_TOLERANCE", defaults.Firearm.SymmetryTolerance)
	params.Firearm.AsymmetryPenalty = getEnvAsFloat("POSE_FIREARM_ASYMMETRY_PENALTY", defaults.Firearm.AsymmetryPenalty)
	params.MaxCoordinate = getEnvAsFloat("POSE_MAX_COORDINATE", defaults.MaxCoordinate)

	dataDir := getEnv("DATA_DIR", "./db")

	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Security: SecurityConfig{
			JWTSecretKey:      getEnv("JWT_SECRET_KEY", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			TokenTTL:          getEnvAsDuration("TOKEN_TTL", 12*time.Hour),
			AllowedOrigins:    getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:      getEnvAsInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 200),
			MaxRequestSize:    getEnvAsInt64("MAX_REQUEST_SIZE", 10*1024*1024), // 10MB
			RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			EnableHTTPS:       getEnvAsBool("ENABLE_HTTPS", false),
			CertFile:          getEnv("CERT_FILE", ""),
			KeyFile:           getEnv("KEY_FILE", ""),
		},
		Classifier: ClassifierConfig{
			Params:         params,
			DefaultElapsed: getEnvAsFloat("POSE_DEFAULT_ELAPSED", 1.0),
			FrameInterval:  getEnvAsDuration("POSE_FRAME_INTERVAL", 33*time.Millisecond),
		},
		Session: SessionConfig{
			IdleTTL:     getEnvAsDuration("SESSION_IDLE_TTL", 5*time.Minute),
			MaxSessions: getEnvAsInt("SESSION_MAX", 1000),
		},
		Alert: AlertConfig{
			ConfidenceThreshold: getEnvAsFloat("ALERT_CONFIDENCE_THRESHOLD", 0.8),
			Cooldown:            getEnvAsDuration("ALERT_COOLDOWN", 5*time.Second),
			QueueSize:           getEnvAsInt("ALERT_QUEUE_SIZE", 100),
			Workers:             getEnvAsInt("ALERT_WORKERS", 2),
		},
		Storage: StorageConfig{
			DataDir:     dataDir,
			AlertsFile:  getEnv("ALERTS_FILE", dataDir+"/logs/suspicious_poses.json"),
			SnapshotDir: getEnv("SNAPSHOT_DIR", dataDir+"/imgs"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
			MaxRetries: getEnvAsInt("NOTIFY_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("NOTIFY_RETRY_DELAY", 1*time.Second),
			AMQPURL:    getEnv("AMQP_URL", ""),
			AMQPQueue:  getEnv("AMQP_QUEUE_NAME", "pose_alerts"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config
}

func (c *Config) ValidateConfig(logger *zap.Logger) error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if c.Security.JWTSecretKey == "" {
		logger.Warn("JWT secret key not set, using random key")
	}

	if c.Security.AdminPasswordHash == "" {
		logger.Warn("Admin password hash not set, login is disabled")
	}

	if c.Security.MaxRequestSize <= 0 {
		errors = append(errors, "max request size must be positive")
	}

	if c.Security.EnableHTTPS && (c.Security.CertFile == "" || c.Security.KeyFile == "") {
		errors = append(errors, "cert and key files are required when HTTPS is enabled")
	}

	if err := c.Classifier.Params.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Classifier.DefaultElapsed <= 0 {
		errors = append(errors, "default elapsed time must be positive")
	}

	if c.Classifier.FrameInterval <= 0 {
		errors = append(errors, "frame interval must be positive")
	}

	if c.Session.IdleTTL <= 0 {
		errors = append(errors, "session idle TTL must be positive")
	}

	if c.Session.MaxSessions < 1 {
		errors = append(errors, "max sessions must be at least 1")
	}

	if c.Alert.ConfidenceThreshold < 0 || c.Alert.ConfidenceThreshold > 1 {
		errors = append(errors, "alert confidence threshold must be between 0 and 1")
	}

	if c.Alert.Cooldown < 0 {
		errors = append(errors, "alert cooldown must not be negative")
	}

	if c.Alert.QueueSize < 1 || c.Alert.Workers < 1 {
		errors = append(errors, "alert queue size and workers must be at least 1")
	}

	if c.Storage.AlertsFile == "" {
		errors = append(errors, "alerts file is required")
	}

	if c.Notify.AMQPURL != "" && c.Notify.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name is required when AMQP URL is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, ", "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
