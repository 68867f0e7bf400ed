package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables gRPC

	Env       string `yaml:"env"` // "dev" | "prod"
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "text" | "json"

	// DB
	DBPath   string `yaml:"db_path"`
	SeedFile string `yaml:"seed_file"` // optional registry seed, upserted at startup

	Camera    CameraConfig    `yaml:"camera"`
	Detection DetectionConfig `yaml:"detection"`
	Plate     PlateConfig     `yaml:"plate"`
	Face      FaceConfig      `yaml:"face"`
	MQTT      MQTTConfig      `yaml:"mqtt"`

	// Plate audit retention
	DetectionRetentionDays int `yaml:"detection_retention_days"` // 0 = keep forever
	PruneIntervalHours     int `yaml:"prune_interval_hours"`
}

type CameraConfig struct {
	Devices  []int `yaml:"devices"`
	MaxWidth int   `yaml:"max_width"`
	// AutoStart opens the camera at boot instead of waiting for a start call.
	AutoStart bool `yaml:"auto_start"`
}

// DetectionConfig counts in frames. SampleEvery counts camera frames, the
// rest count sampled frames.
type DetectionConfig struct {
	SampleEvery           int `yaml:"sample_every"`
	CooldownFrames        int `yaml:"cooldown_frames"`
	ResetEvery            int `yaml:"reset_every"`
	UnknownFaceAlertEvery int `yaml:"unknown_face_alert_every"`
}

type PlateConfig struct {
	Binary        string        `yaml:"binary"`
	ConfigPath    string        `yaml:"config_path"`
	Country       string        `yaml:"country"`
	TopN          int           `yaml:"top_n"`
	MinConfidence float64       `yaml:"min_confidence"`
	Timeout       time.Duration `yaml:"timeout"`
	Enhance       bool          `yaml:"enhance"`
}

type FaceConfig struct {
	CascadePath   string        `yaml:"cascade_path"`
	ClassifierDir string        `yaml:"classifier_dir"`
	Timeout       time.Duration `yaml:"timeout"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables forwarding
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		GRPCAddr:  ":9090",
		Env:       "dev",
		LogLevel:  "info",
		LogFormat: "text",
		DBPath:    "./data/sentinel.db",
		Camera: CameraConfig{
			Devices:  []int{0, 1, 2},
			MaxWidth: 640,
		},
		Detection: DetectionConfig{
			SampleEvery:           30,
			CooldownFrames:        2,
			ResetEvery:            10,
			UnknownFaceAlertEvery: 4,
		},
		Plate: PlateConfig{
			Binary:        "alpr",
			Country:       "us",
			TopN:          10,
			MinConfidence: 65,
			Timeout:       20 * time.Second,
			Enhance:       true,
		},
		Face: FaceConfig{
			CascadePath:   "./models/haarcascade_frontalface_default.xml",
			ClassifierDir: "./models/classifiers",
			Timeout:       time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:    "sentinel-server",
			TopicPrefix: "sentinel",
		},
		DetectionRetentionDays: 30,
		PruneIntervalHours:     6,
	}
}

// Load starts from Default, applies the YAML file named by SENTINEL_CONFIG
// if set, then SENTINEL_* environment variables. Only an unreadable or
// malformed file is an error; bad env values fall back silently.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("SENTINEL_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// FromEnv is Load without a config file.
func FromEnv() Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenvDefault("SENTINEL_HTTP_ADDR", c.HTTPAddr)
	if v, ok := os.LookupEnv("SENTINEL_GRPC_ADDR"); ok {
		c.GRPCAddr = strings.TrimSpace(v)
	}
	c.Env = strings.ToLower(getenvDefault("SENTINEL_ENV", c.Env))
	c.LogLevel = strings.ToLower(getenvDefault("SENTINEL_LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getenvDefault("SENTINEL_LOG_FORMAT", c.LogFormat))

	c.DBPath = getenvDefault("SENTINEL_DB_PATH", c.DBPath)
	c.SeedFile = getenvDefault("SENTINEL_SEED_FILE", c.SeedFile)

	if devs := getenvInts("SENTINEL_CAMERA_DEVICES"); len(devs) > 0 {
		c.Camera.Devices = devs
	}
	c.Camera.MaxWidth = getenvInt("SENTINEL_FRAME_MAX_WIDTH", c.Camera.MaxWidth)
	c.Camera.AutoStart = getenvBool("SENTINEL_CAMERA_AUTOSTART", c.Camera.AutoStart)

	c.Detection.SampleEvery = getenvInt("SENTINEL_DETECTION_INTERVAL", c.Detection.SampleEvery)
	c.Detection.CooldownFrames = getenvInt("SENTINEL_COOLDOWN_FRAMES", c.Detection.CooldownFrames)
	c.Detection.ResetEvery = getenvInt("SENTINEL_RESET_EVERY", c.Detection.ResetEvery)
	c.Detection.UnknownFaceAlertEvery = getenvInt("SENTINEL_UNKNOWN_FACE_ALERT_EVERY", c.Detection.UnknownFaceAlertEvery)

	c.Plate.Binary = getenvDefault("SENTINEL_ALPR_BINARY", c.Plate.Binary)
	c.Plate.ConfigPath = getenvDefault("SENTINEL_ALPR_CONFIG", c.Plate.ConfigPath)
	c.Plate.Country = getenvDefault("SENTINEL_PLATE_REGION", c.Plate.Country)
	c.Plate.TopN = getenvInt("SENTINEL_PLATE_TOP_N", c.Plate.TopN)
	c.Plate.MinConfidence = getenvFloat("SENTINEL_PLATE_MIN_CONFIDENCE", c.Plate.MinConfidence)
	c.Plate.Timeout = getenvDuration("SENTINEL_PLATE_TIMEOUT", c.Plate.Timeout)
	c.Plate.Enhance = getenvBool("SENTINEL_PLATE_ENHANCE", c.Plate.Enhance)

	c.Face.CascadePath = getenvDefault("SENTINEL_FACE_CASCADE", c.Face.CascadePath)
	c.Face.ClassifierDir = getenvDefault("SENTINEL_FACE_CLASSIFIER_DIR", c.Face.ClassifierDir)
	c.Face.Timeout = getenvDuration("SENTINEL_FACE_TIMEOUT", c.Face.Timeout)

	c.MQTT.Broker = getenvDefault("SENTINEL_MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getenvDefault("SENTINEL_MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.TopicPrefix = getenvDefault("SENTINEL_MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix)
	c.MQTT.Username = getenvDefault("SENTINEL_MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getenvDefault("SENTINEL_MQTT_PASSWORD", c.MQTT.Password)

	c.DetectionRetentionDays = getenvInt("SENTINEL_DETECTION_RETENTION_DAYS", c.DetectionRetentionDays)
	c.PruneIntervalHours = getenvInt("SENTINEL_PRUNE_INTERVAL_HOURS", c.PruneIntervalHours)
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := Default()
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		c.LogFormat = def.LogFormat
	}
	if c.Detection.SampleEvery <= 0 {
		c.Detection.SampleEvery = def.Detection.SampleEvery
	}
	if c.Detection.CooldownFrames <= 0 {
		c.Detection.CooldownFrames = def.Detection.CooldownFrames
	}
	if c.Detection.UnknownFaceAlertEvery <= 0 {
		c.Detection.UnknownFaceAlertEvery = def.Detection.UnknownFaceAlertEvery
	}
	if c.Plate.MinConfidence < 0 || c.Plate.MinConfidence > 100 {
		c.Plate.MinConfidence = def.Plate.MinConfidence
	}
	if c.Plate.Timeout <= 0 {
		c.Plate.Timeout = def.Plate.Timeout
	}
	if c.Face.Timeout <= 0 {
		c.Face.Timeout = def.Face.Timeout
	}
	if c.PruneIntervalHours <= 0 {
		c.PruneIntervalHours = def.PruneIntervalHours
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDuration accepts Go durations ("20s") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
		return time.Duration(n * float64(time.Second))
	}
	return def
}

func getenvInts(key string) []int {
	var out []int
	for _, p := range splitCSV(os.Getenv(key)) {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
