package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const placeholderSessionKey = "CHANGE_ME_IN_PRODUCTION"

type Config struct {
	AppName       string `json:"app_name"`
	ListenIP      string `json:"listen_ip"`
	ListenPort    int    `json:"listen_port"`
	SessionKey    string `json:"session_key"`
	SecureCookies bool   `json:"secure_cookies"`

	// BaseURL is the externally reachable origin used for RSVP links in emails.
	BaseURL string `json:"base_url"`

	DatabasePath string `json:"database_path"`

	// PublicDir is served under /static/. UploadDir must live inside it for the
	// local storage backend.
	PublicDir      string `json:"public_dir"`
	UploadDir      string `json:"upload_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	AssetBaseURL   string `json:"asset_base_url"`

	Captcha   bool   `json:"captcha"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	Mail    MailConfig    `json:"mail"`
	Storage StorageConfig `json:"storage"`
	RSVP    RSVPConfig    `json:"rsvp"`

	// GeneratedSessionKey is set when no key was configured and a random one was used.
	GeneratedSessionKey bool `json:"-"`
}

type MailConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	UseTLS   bool     `json:"use_tls"`
	From     string   `json:"from"`
	Timeout  Duration `json:"timeout"`
}

type StorageConfig struct {
	Backend  string `json:"backend"` // "local" or "s3"
	S3Bucket string `json:"s3_bucket"`
	S3Region string `json:"s3_region"`
	S3Prefix string `json:"s3_prefix"`
}

type RSVPConfig struct {
	// SealedTokens replaces raw guest ids in RSVP links with encrypted tokens.
	SealedTokens bool `json:"sealed_tokens"`
}

// Duration decodes either a Go duration string ("10s") or a number of seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = v
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

func Default() Config {
	return Config{
		AppName:        "Evite",
		ListenIP:       "127.0.0.1",
		ListenPort:     8080,
		BaseURL:        "http://localhost:8080",
		DatabasePath:   "./evite.db",
		PublicDir:      "static",
		UploadDir:      "static/uploads",
		MaxUploadBytes: 10 << 20,
		AssetBaseURL:   "/static/",
		LogLevel:       "info",
		LogFormat:      "json",
		Mail: MailConfig{
			Port:    587,
			UseTLS:  true,
			Timeout: Duration{10 * time.Second},
		},
		Storage: StorageConfig{Backend: "local"},
	}
}

// Load reads the JSON file at path (skipped when path is empty), then applies
// .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.SessionKey == "" || cfg.SessionKey == placeholderSessionKey {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return nil, err
		}
		cfg.SessionKey = hex.EncodeToString(randomKey)
		cfg.GeneratedSessionKey = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.SessionKey, "EVITE_SESSION_KEY")
	setString(&c.BaseURL, "EVITE_BASE_URL")
	setString(&c.DatabasePath, "EVITE_DATABASE_PATH")
	setString(&c.UploadDir, "EVITE_UPLOAD_DIR")
	setString(&c.LogLevel, "EVITE_LOG_LEVEL")
	setString(&c.Mail.Host, "MAIL_SERVER")
	setString(&c.Mail.Username, "MAIL_USERNAME")
	setString(&c.Mail.Password, "MAIL_PASSWORD")
	setString(&c.Mail.From, "MAIL_DEFAULT_SENDER")
	setString(&c.Storage.S3Bucket, "EVITE_S3_BUCKET")
	setString(&c.Storage.S3Region, "AWS_REGION")

	if err := setInt(&c.ListenPort, "EVITE_LISTEN_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Mail.Port, "MAIL_PORT"); err != nil {
		return err
	}
	if v := os.Getenv("MAIL_USE_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MAIL_USE_TLS: %w", err)
		}
		c.Mail.UseTLS = b
	}
	if os.Getenv("EVITE_S3_BUCKET") != "" {
		c.Storage.Backend = "s3"
	}
	return nil
}

func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.ListenPort)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes must not be negative")
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage backend s3 requires s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}
	if c.Mail.Timeout.Duration <= 0 {
		c.Mail.Timeout.Duration = 10 * time.Second
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenIP, c.ListenPort)
}

// AssetURL turns a stored image path ("uploads/x.png") into a link. With
// absolute true a relative asset base is prefixed with BaseURL, for emails.
func (c *Config) AssetURL(path string, absolute bool) string {
	if path == "" {
		return ""
	}
	u := strings.TrimSuffix(c.AssetBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if absolute && strings.HasPrefix(u, "/") {
		u = strings.TrimSuffix(c.BaseURL, "/") + u
	}
	return u
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
