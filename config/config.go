// Package config loads application settings from a settings document, a .env file and environment variables.
// Environment variables always take precedence over the settings document.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultBucket    = "uscf-results"
	DefaultRegion    = "us-west-2"
	DefaultIDsBucket = "uscf-player-monitor"
	DefaultHTTPAddr  = ":8080"
	DefaultMongoDB   = "uscf_gamelist"
	DefaultAPIURL    = "https://ratings-api.uschess.org/api/v1/"

	settingsFileName = "settings.json"
)

// Config holds all application configuration.
type Config struct {
	// S3 storage for the caches, the game link table and the published page
	AwsAccessKey string
	AwsSecretKey string
	S3Bucket     string
	AwsRegion    string
	// IDsBucket holds uscf-ids.txt for the player monitor
	IDsBucket  string
	S3Endpoint string

	// CacheDir is the local mirror of the S3 documents. Empty uses the user cache directory
	CacheDir string

	// Optional MongoDB mirror of the documents
	MongoURI string
	MongoDB  string

	DiscordToken   string
	DiscordChannel string
	HTTPAddr       string

	APIBaseURL     string
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	MemberID       string

	Debug bool

	// SettingsPath is where the settings document was read from and where Save writes it
	SettingsPath string
}

// settingsDocument is the persisted part of the configuration. Field names match settings.json
type settingsDocument struct {
	AwsAccessKey string `json:"AwsAccessKey"`
	AwsSecretKey string `json:"AwsSecretKey"`
	S3Bucket     string `json:"S3Bucket"`
	AwsRegion    string `json:"AwsRegion"`
	UscfMemberID string `json:"UscfMemberId,omitempty"`
}

// envBindings maps settings keys to the environment variables that override them
var envBindings = map[string]string{
	"AwsAccessKey":   "AWS_ACCESS_KEY_ID",
	"AwsSecretKey":   "AWS_SECRET_ACCESS_KEY",
	"S3Bucket":       "S3_BUCKET",
	"AwsRegion":      "AWS_REGION",
	"IDsBucket":      "IDS_BUCKET",
	"S3Endpoint":     "S3_ENDPOINT",
	"CacheDir":       "CACHE_DIR",
	"MongoURI":       "MONGO_URI",
	"MongoDB":        "MONGO_DB",
	"DiscordToken":   "DISCORD_TOKEN",
	"DiscordChannel": "DISCORD_CHANNEL_ID",
	"HTTPAddr":       "HTTP_ADDR",
	"APIBaseURL":     "USCF_API_BASE_URL",
	"RequestDelay":   "REQUEST_DELAY",
	"RequestTimeout": "REQUEST_TIMEOUT",
	"UscfMemberId":   "USCF_MEMBER_ID",
	"Debug":          "DEBUG",
}

// DefaultSettingsPath returns <user config dir>/USCFGameList/settings.json
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "USCFGameList", settingsFileName)
}

// Load reads the settings document at settingsPath (DefaultSettingsPath when empty; a missing file is fine), then
// a .env file if present, then environment variables. Environment variables always win.
func Load(settingsPath string) (*Config, error) {
	if settingsPath == "" {
		settingsPath = DefaultSettingsPath()
	}
	// Silently load .env, production uses real env vars
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(settingsPath)
	v.SetConfigType("json")
	if _, err := os.Stat(settingsPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", settingsPath, err)
		}
	}

	cfg := &Config{
		AwsAccessKey:   strings.TrimSpace(v.GetString("AwsAccessKey")),
		AwsSecretKey:   strings.TrimSpace(v.GetString("AwsSecretKey")),
		S3Bucket:       strings.TrimSpace(v.GetString("S3Bucket")),
		AwsRegion:      strings.TrimSpace(v.GetString("AwsRegion")),
		IDsBucket:      strings.TrimSpace(v.GetString("IDsBucket")),
		S3Endpoint:     strings.TrimSpace(v.GetString("S3Endpoint")),
		CacheDir:       v.GetString("CacheDir"),
		MongoURI:       v.GetString("MongoURI"),
		MongoDB:        v.GetString("MongoDB"),
		DiscordToken:   v.GetString("DiscordToken"),
		DiscordChannel: v.GetString("DiscordChannel"),
		HTTPAddr:       v.GetString("HTTPAddr"),
		APIBaseURL:     v.GetString("APIBaseURL"),
		RequestDelay:   v.GetDuration("RequestDelay"),
		RequestTimeout: v.GetDuration("RequestTimeout"),
		MemberID:       strings.TrimSpace(v.GetString("UscfMemberId")),
		Debug:          v.GetBool("Debug"),
		SettingsPath:   settingsPath,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// Defaults
	v.SetDefault("S3Bucket", DefaultBucket)
	v.SetDefault("AwsRegion", DefaultRegion)
	v.SetDefault("IDsBucket", DefaultIDsBucket)
	v.SetDefault("HTTPAddr", DefaultHTTPAddr)
	v.SetDefault("MongoDB", DefaultMongoDB)
	v.SetDefault("APIBaseURL", DefaultAPIURL)
	v.SetDefault("RequestDelay", time.Second)
	v.SetDefault("RequestTimeout", 30*time.Second)
	v.SetDefault("Debug", false)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	var errs []error
	if c.RequestDelay < 0 {
		errs = append(errs, fmt.Errorf("config: request delay must not be negative, got %s", c.RequestDelay))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: request timeout must be positive, got %s", c.RequestTimeout))
	}
	if (c.AwsAccessKey == "") != (c.AwsSecretKey == "") {
		errs = append(errs, errors.New("config: both the AWS access key and secret key must be set to use S3"))
	}
	for _, r := range c.MemberID {
		if r < '0' || r > '9' {
			errs = append(errs, fmt.Errorf("config: invalid USCF member id %q", c.MemberID))
			break
		}
	}
	return errors.Join(errs...)
}

// S3Enabled reports whether S3 is configured: both keys and a bucket
func (c *Config) S3Enabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.S3Bucket != ""
}

// Save writes the settings document to c.SettingsPath, creating its directory
func (c *Config) Save() error {
	if c.SettingsPath == "" {
		c.SettingsPath = DefaultSettingsPath()
	}
	doc := settingsDocument{
		AwsAccessKey: c.AwsAccessKey,
		AwsSecretKey: c.AwsSecretKey,
		S3Bucket:     c.S3Bucket,
		AwsRegion:    c.AwsRegion,
		UscfMemberID: c.MemberID,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.SettingsPath), 0o755); err != nil {
		return fmt.Errorf("config: failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(c.SettingsPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", c.SettingsPath, err)
	}
	return nil
}
