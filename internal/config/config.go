// Package config carrega a configuração do gateway de contato.
//
// Precedência: flags > variáveis de ambiente > arquivo (opcional) > defaults.
// As chaves de ambiente são as chaves abaixo em maiúsculas (rate_limit -> RATE_LIMIT).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	ContactPath  string `mapstructure:"contact_path"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`

	RateLimit   int           `mapstructure:"rate_limit"`
	RateWindow  time.Duration `mapstructure:"rate_window"`
	RateBackend string        `mapstructure:"rate_backend"`
	TrustXFF    bool          `mapstructure:"trust_xff"`
	KeyHeader   string        `mapstructure:"key_header"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`

	RecaptchaSecret    string        `mapstructure:"recaptcha_secret_key"`
	RecaptchaVerifyURL string        `mapstructure:"recaptcha_verify_url"`
	RecaptchaMinScore  float64       `mapstructure:"recaptcha_min_score"`
	CaptchaTimeout     time.Duration `mapstructure:"captcha_timeout"`

	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	MailFrom     string        `mapstructure:"mail_from"`
	MailTo       string        `mapstructure:"mail_to"`
	MailTimeout  time.Duration `mapstructure:"mail_timeout"`

	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`

	FloodRPS   float64 `mapstructure:"flood_rps"`
	FloodBurst int     `mapstructure:"flood_burst"`

	ConcurrencyMax     int           `mapstructure:"concurrency_max"`
	ConcurrencyTimeout time.Duration `mapstructure:"concurrency_timeout"`

	StatsBackend string `mapstructure:"stats_backend"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"listen_addr":    ":8080",
	"contact_path":   "/api/contact",
	"max_body_bytes": 64 << 10,

	"rate_limit":   5,
	"rate_window":  time.Hour,
	"rate_backend": "memory",
	"trust_xff":    true,
	"key_header":   "",

	"redis_addr":     "",
	"redis_password": "",
	"redis_db":       0,
	"redis_prefix":   "contact",

	"recaptcha_secret_key": "",
	"recaptcha_verify_url": "https://www.google.com/recaptcha/api/siteverify",
	"recaptcha_min_score":  0.0,
	"captcha_timeout":      5 * time.Second,

	"smtp_host":     "smtp.gmail.com",
	"smtp_port":     587,
	"smtp_username": "",
	"smtp_password": "",
	"mail_from":     "",
	"mail_to":       "",
	"mail_timeout":  10 * time.Second,

	"lock_timeout": 15 * time.Second,
	"lock_ttl":     30 * time.Second,

	"flood_rps":   1.0,
	"flood_burst": 10,

	"concurrency_max":     64,
	"concurrency_timeout": 2 * time.Second,

	"stats_backend": "memory",

	"log_level":  "info",
	"log_format": "json",
}

// Loader embrulha um viper com defaults e ambiente já ligados.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlags registra as flags de linha de comando mais usadas.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	fs.String("listen-addr", defaults["listen_addr"].(string), "listen address")
	fs.String("rate-backend", defaults["rate_backend"].(string), "rate limit backend: memory or redis")
	fs.String("redis-addr", "", "redis address (rate/stats backends)")
	fs.String("log-level", defaults["log_level"].(string), "log level")
	fs.String("log-format", defaults["log_format"].(string), "log format: json or console")

	for key, flag := range map[string]string{
		"listen_addr":  "listen-addr",
		"rate_backend": "rate-backend",
		"redis_addr":   "redis-addr",
		"log_level":    "log-level",
		"log_format":   "log-format",
	} {
		if err := l.v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load lê o arquivo (se houver), decodifica e valida.
func (l *Loader) Load(path string) (Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.decode()
}

// Watch observa o arquivo de configuração e entrega a nova versão já validada.
// Só faz sentido depois de Load com um path.
func (l *Loader) Watch(onChange func(Config, error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		onChange(l.decode())
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.RateBackend = strings.ToLower(strings.TrimSpace(cfg.RateBackend))
	cfg.StatsBackend = strings.ToLower(strings.TrimSpace(cfg.StatsBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT must be > 0"))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, errors.New("RATE_WINDOW must be > 0"))
	}
	switch c.RateBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_BACKEND must be memory or redis, got %q", c.RateBackend))
	}
	switch c.StatsBackend {
	case "memory", "redis", "none":
	default:
		errs = append(errs, fmt.Errorf("STATS_BACKEND must be memory, redis or none, got %q", c.StatsBackend))
	}
	if c.UsesRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when a redis backend is selected"))
	}
	if c.CaptchaTimeout <= 0 || c.MailTimeout <= 0 || c.LockTimeout <= 0 {
		errs = append(errs, errors.New("CAPTCHA_TIMEOUT, MAIL_TIMEOUT and LOCK_TIMEOUT must be > 0"))
	}
	// a janela precisa sobreviver ao pior caso do pipeline; senão a entrada
	// pode expirar (e ser limpa) entre IsLimited e Increment.
	if c.RateWindow > 0 && c.RateWindow <= c.pipelineBudget() {
		errs = append(errs, errors.New("RATE_WINDOW must exceed LOCK_TIMEOUT + CAPTCHA_TIMEOUT + MAIL_TIMEOUT"))
	}
	if c.RateBackend == "redis" && c.LockTTL <= c.CaptchaTimeout+c.MailTimeout {
		errs = append(errs, errors.New("LOCK_TTL must exceed CAPTCHA_TIMEOUT + MAIL_TIMEOUT"))
	}
	if strings.TrimSpace(c.MailTo) == "" {
		errs = append(errs, errors.New("MAIL_TO is required"))
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.FloodRPS < 0 || c.FloodBurst < 0 {
		errs = append(errs, errors.New("FLOOD_RPS and FLOOD_BURST must be >= 0"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be > 0"))
	}
	if !strings.HasPrefix(c.ContactPath, "/") {
		errs = append(errs, errors.New("CONTACT_PATH must start with /"))
	}
	return errors.Join(errs...)
}

// pipelineBudget é o tempo máximo que uma submissão segura a cota do cliente.
func (c Config) pipelineBudget() time.Duration {
	return c.LockTimeout + c.CaptchaTimeout + c.MailTimeout
}

func (c Config) UsesRedis() bool {
	return c.RateBackend == "redis" || c.StatsBackend == "redis"
}

// Warnings lista configurações que não impedem o boot mas fazem o gateway
// rejeitar tudo (falha fechada).
func (c Config) Warnings() []string {
	var out []string
	if c.RecaptchaSecret == "" {
		out = append(out, "RECAPTCHA_SECRET_KEY not set: every submission will fail captcha verification")
	}
	if c.SMTPUsername == "" || c.SMTPPassword == "" {
		out = append(out, "SMTP_USERNAME/SMTP_PASSWORD not set: every dispatch will fail")
	}
	return out
}
