package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Live frame sources selectable through LIVE_SOURCE.
const (
	LiveSourceCamera = "camera"
	LiveSourceUDP    = "udp"
	LiveSourceOff    = "off"
)

type Config struct {
	Port            int
	Password        string
	ModelPath       string
	ConfigPath      string
	DBPath          string
	LogDirectory    string
	StaticDirectory string

	LiveSource   string
	CameraDevice int
	CamerasPort  int
	CameraNames  map[string]string // sender IP -> camera name for UDP cameras
	FrameWidth   int
	FrameHeight  int
	LiveInterval time.Duration

	DetectTimeout      time.Duration
	FetchTimeout       time.Duration
	DetectionThreshold float64
	MaxDetections      int

	ImageAPIURL     string
	ImageAPIKey     string
	SuggestedLabels []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		Password:        getEnv("PASSWORD", "labelcam"),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:      getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		DBPath:          getEnv("DB_PATH", filepath.Join(".", "data", "labels.db")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory: getEnv("STATIC_DIR", "static"),

		LiveSource:   getEnv("LIVE_SOURCE", LiveSourceCamera),
		CameraDevice: getEnvAsInt("CAMERA_DEVICE", 0),
		CamerasPort:  getEnvAsInt("CAMERAS_PORT", 8081),
		CameraNames:  getEnvAsMap("CAMERA_NAMES"),
		FrameWidth:   getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:  getEnvAsInt("FRAME_HEIGHT", 480),
		LiveInterval: getEnvAsDuration("LIVE_INTERVAL", 100*time.Millisecond),

		DetectTimeout:      getEnvAsDuration("DETECT_TIMEOUT", 5*time.Second),
		FetchTimeout:       getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		DetectionThreshold: getEnvAsFloat("DETECTION_THRESHOLD", 0.5),
		MaxDetections:      getEnvAsInt("MAX_DETECTIONS", 20),

		ImageAPIURL:     getEnv("IMAGE_API_URL", "https://api.unsplash.com/photos/random"),
		ImageAPIKey:     getEnv("IMAGE_API_KEY", ""),
		SuggestedLabels: getEnvAsList("SUGGESTED_LABELS", []string{"person", "car"}),
	}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("250ms", "5s").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value. Entries are kept as typed,
// only empty entries are dropped.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsMap parses "ip=name,ip=name".
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
