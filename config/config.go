package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Store      StoreConfig
	Durability DurabilityConfig
	Scanner    ScannerConfig
	Observ     ObservabilityConfig
}

type StoreConfig struct {
	// Path is the database file location. Empty means the host should
	// probe for a writable data directory via ChooseDataDir.
	Path      string
	BackupDir string
}

type DurabilityConfig struct {
	CheckpointThreshold int
	CheckpointInterval  time.Duration
}

type ScannerConfig struct {
	Timeout   time.Duration
	MinLength int
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	threshold, _ := strconv.Atoi(getEnv("CHECKPOINT_THRESHOLD", "50"))
	interval, _ := strconv.Atoi(getEnv("CHECKPOINT_INTERVAL_SECONDS", "300"))
	timeout, _ := strconv.Atoi(getEnv("SCAN_TIMEOUT_MS", "100"))
	minLength, _ := strconv.Atoi(getEnv("MIN_SCAN_LENGTH", "3"))

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Store: StoreConfig{
			Path:      getEnv("DB_PATH", ""),
			BackupDir: getEnv("BACKUP_DIR", ""),
		},
		Durability: DurabilityConfig{
			CheckpointThreshold: threshold,
			CheckpointInterval:  time.Duration(interval) * time.Second,
		},
		Scanner: ScannerConfig{
			Timeout:   time.Duration(timeout) * time.Millisecond,
			MinLength: minLength,
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
	}

	log.Printf("Config loaded: env=%s, checkpoint_threshold=%d", cfg.Env, threshold)
	return cfg
}

// DefaultDataCandidates returns the data directory candidates in
// preference order: OS application-data directory, then the user
// profile, then the system temp directory.
func DefaultDataCandidates(appName string) []string {
	var candidates []string
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, appName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+appName))
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), appName))
	return candidates
}

// ChooseDataDir picks the first candidate directory that can be created
// and written to. Called once by the host before the store is opened.
func ChooseDataDir(candidates []string) (string, error) {
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		probe := filepath.Join(dir, ".write-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			continue
		}
		_ = os.Remove(probe)
		return dir, nil
	}
	return "", fmt.Errorf("no writable data directory among %d candidates", len(candidates))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
