package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MAIL_TO", "ops@example.com")

	cfg, err := NewLoader().Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/api/contact", cfg.ContactPath)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.Equal(t, time.Hour, cfg.RateWindow)
	assert.Equal(t, "memory", cfg.RateBackend)
	assert.True(t, cfg.TrustXFF)
	assert.Equal(t, 5*time.Second, cfg.CaptchaTimeout)
	assert.Equal(t, 10*time.Second, cfg.MailTimeout)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.EqualValues(t, 64<<10, cfg.MaxBodyBytes)
	assert.Equal(t, "https://www.google.com/recaptcha/api/siteverify", cfg.RecaptchaVerifyURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAIL_TO", "ops@example.com")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_WINDOW", "30m")
	t.Setenv("TRUST_XFF", "false")
	t.Setenv("RECAPTCHA_SECRET_KEY", "s3cret")
	t.Setenv("RECAPTCHA_MIN_SCORE", "0.5")
	t.Setenv("RATE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := NewLoader().Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, 30*time.Minute, cfg.RateWindow)
	assert.False(t, cfg.TrustXFF)
	assert.Equal(t, "s3cret", cfg.RecaptchaSecret)
	assert.InDelta(t, 0.5, cfg.RecaptchaMinScore, 1e-9)
	assert.Equal(t, "redis", cfg.RateBackend)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mail_to: file@example.com\nrate_limit: 3\ncaptcha_timeout: 2s\n"), 0o600))

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.MailTo)
	assert.Equal(t, 3, cfg.RateLimit)
	assert.Equal(t, 2*time.Second, cfg.CaptchaTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("MAIL_TO", "ops@example.com")
	t.Setenv("LISTEN_ADDR", ":9000")

	l := NewLoader()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, l.BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--listen-addr", ":9999"}))

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestValidate(t *testing.T) {
	t.Setenv("MAIL_TO", "ops@example.com")
	base := func(t *testing.T) Config {
		cfg, err := NewLoader().Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(*Config){
		"zero limit":         func(c *Config) { c.RateLimit = 0 },
		"zero window":        func(c *Config) { c.RateWindow = 0 },
		"unknown backend":    func(c *Config) { c.RateBackend = "etcd" },
		"redis without addr": func(c *Config) { c.RateBackend = "redis"; c.RedisAddr = "" },
		"no mail_to":         func(c *Config) { c.MailTo = "" },
		"bad path":           func(c *Config) { c.ContactPath = "api" },
		"negative flood":     func(c *Config) { c.FloodRPS = -1 },
		"window under pipeline": func(c *Config) {
			c.RateWindow = c.LockTimeout + c.CaptchaTimeout + c.MailTimeout
		},
		"short lock ttl": func(c *Config) {
			c.RateBackend, c.RedisAddr = "redis", "x:1"
			c.LockTTL = c.CaptchaTimeout
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base(t)
			require.NoError(t, cfg.Validate())
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_WindowJustAbovePipeline(t *testing.T) {
	t.Setenv("MAIL_TO", "ops@example.com")
	cfg, err := NewLoader().Load("")
	require.NoError(t, err)

	cfg.RateWindow = cfg.LockTimeout + cfg.CaptchaTimeout + cfg.MailTimeout + time.Second
	assert.NoError(t, cfg.Validate())
}

func TestWatch_DeliversReloadedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mail_to: ops@example.com\nlog_level: info\n"), 0o600))

	l := NewLoader()
	cfg, err := l.Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)

	got := make(chan Config, 8)
	l.Watch(func(next Config, err error) {
		if err != nil {
			return
		}
		select {
		case got <- next:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("mail_to: ops@example.com\nlog_level: debug\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-got:
			if next.LogLevel == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("reload with log_level=debug not delivered")
		}
	}
}

func TestWatch_WithoutFileIsNoop(t *testing.T) {
	t.Setenv("MAIL_TO", "ops@example.com")
	l := NewLoader()
	_, err := l.Load("")
	require.NoError(t, err)

	l.Watch(func(Config, error) { t.Error("unexpected reload") })
}

func TestWarnings(t *testing.T) {
	assert.Len(t, Config{}.Warnings(), 2)
	assert.Empty(t, Config{RecaptchaSecret: "s", SMTPUsername: "u", SMTPPassword: "p"}.Warnings())
}
