package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Notification kinds, used as keys of Config.Notifications.
const (
	NoticeScheduled = "scheduled_notice"
	NoticeReminder  = "reminder_notice"
	NoticeWelcome   = "welcome_notice"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Mail backends
const (
	MailConsole  = "console"
	MailSendgrid = "sendgrid"
	MailSMTP     = "smtp"
	MailDisabled = "disabled"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MailConfig struct {
		Backend        string
		SendgridAPIKey string
		SMTPHost       string
		SMTPPort       int
		SMTPUser       string
		SMTPPassword   string
		Timeout        time.Duration
	}

	IdentityConfig struct {
		BaseURL      string
		ServiceKey   string
		ProfileTable string
		Timeout      time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		LockTTL  time.Duration
	}

	// NotificationSetting toggles a notification kind and holds its subject template.
	NotificationSetting struct {
		Enabled bool
		Subject string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		SiteURL          string
		DefaultFromEmail mail.Address
		RollbarToken     string
		Storage          string

		Server        ServerConfig
		Database      DatabaseConfig
		Mail          MailConfig
		Identity      IdentityConfig
		Redis         RedisConfig
		Notifications map[string]NotificationSetting
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Notification returns the setting for kind. Unknown kinds are disabled.
func (c *Config) Notification(kind string) NotificationSetting {
	if c.Notifications == nil {
		return NotificationSetting{}
	}
	return c.Notifications[kind]
}

// IdentityEnabled reports whether the external identity provider has credentials configured.
func (c *Config) IdentityEnabled() bool {
	return c.Identity.BaseURL != "" && c.Identity.ServiceKey != ""
}

// DefaultNotifications returns the notification settings used when nothing is configured.
func DefaultNotifications() map[string]NotificationSetting {
	return map[string]NotificationSetting{
		NoticeScheduled: {Enabled: true, Subject: "New Observation Scheduled - T-TESS Bloom"},
		NoticeReminder:  {Enabled: true, Subject: "Observation {{.SubjectTiming}} - T-TESS Bloom"},
		NoticeWelcome:   {Enabled: true, Subject: "Welcome to the System"},
	}
}

func notifications(conf *viper.Viper) map[string]NotificationSetting {
	settings := make(map[string]NotificationSetting, 3)
	for _, kind := range []string{NoticeScheduled, NoticeReminder, NoticeWelcome} {
		settings[kind] = NotificationSetting{
			Enabled: conf.GetBool("notifications." + kind + ".enabled"),
			Subject: conf.GetString("notifications." + kind + ".subject"),
		}
	}
	return settings
}

// NewConfig reads the configuration from the environment (and config/.env.<env> when present).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "T-TESS Bloom")
	conf.SetDefault("secretKey", "k2v#9q^yq8b!r3mw$ejz0n@x5f(t7+p6c&h)g1ua4sd=li")
	conf.SetDefault("siteURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "T-TESS Bloom <noreply@localhost>")
	conf.SetDefault("storage", StoragePostgres)

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "ttessbloom")
	conf.SetDefault("database.user", "ttessbloom")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("mail.backend", MailConsole)
	conf.SetDefault("mail.smtpPort", 587)
	conf.SetDefault("mail.timeout", 10*time.Second)

	conf.SetDefault("identity.profileTable", "user_profiles")
	conf.SetDefault("identity.timeout", 10*time.Second)

	conf.SetDefault("redis.lockTTL", 2*time.Minute)

	for kind, setting := range DefaultNotifications() {
		conf.SetDefault("notifications."+kind+".enabled", setting.Enabled)
		conf.SetDefault("notifications."+kind+".subject", setting.Subject)
	}

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	from, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		SiteURL:          strings.TrimRight(conf.GetString("siteURL"), "/"),
		DefaultFromEmail: *from,
		RollbarToken:     conf.GetString("rollbarToken"),
		Storage:          conf.GetString("storage"),
		Server: ServerConfig{
			Host:               conf.GetString("server.host"),
			Address:            conf.GetString("server.address"),
			DebugHost:          conf.GetString("server.debugHost"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     conf.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Mail: MailConfig{
			Backend:        conf.GetString("mail.backend"),
			SendgridAPIKey: conf.GetString("mail.sendgridAPIKey"),
			SMTPHost:       conf.GetString("mail.smtpHost"),
			SMTPPort:       conf.GetInt("mail.smtpPort"),
			SMTPUser:       conf.GetString("mail.smtpUser"),
			SMTPPassword:   conf.GetString("mail.smtpPassword"),
			Timeout:        conf.GetDuration("mail.timeout"),
		},
		Identity: IdentityConfig{
			BaseURL:      strings.TrimRight(conf.GetString("identity.baseURL"), "/"),
			ServiceKey:   conf.GetString("identity.serviceKey"),
			ProfileTable: conf.GetString("identity.profileTable"),
			Timeout:      conf.GetDuration("identity.timeout"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redis.addr"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
			LockTTL:  conf.GetDuration("redis.lockTTL"),
		},
		Notifications: notifications(conf),
	}
}
