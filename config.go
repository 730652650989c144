package storefront

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Mail providers
const (
	MailLog      = "log"
	MailSMTP     = "smtp"
	MailMailgun  = "mailgun"
	MailSendGrid = "sendgrid"
)

// Config is the process wide configuration. It is loaded once at startup
// and passed explicitly to every component that needs it.
type Config struct {
	Port        int
	FrontendURL string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string
	Debug       bool
	Auth        AuthConfig
	Store       StoreConfig
	Mail        MailConfig
	Payment     PaymentConfig
}

// AuthConfig holds token secrets and lifetimes.
type AuthConfig struct {
	Issuer             string
	UseHashid          bool
	VerificationSecret string
	AccessSecret       string
	RefreshSecret      string
	ResetSecret        string
	VerificationTTL    time.Duration
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	ResetTTL           time.Duration
	OperationTimeout   time.Duration
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver        string
	DSN           string
	MongoURI      string
	MongoDatabase string
	AutoMigrate   bool
}

// MailConfig selects the email transport.
type MailConfig struct {
	Provider       string
	From           string
	MailgunDomain  string
	MailgunKey     string
	SendGridKey    string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	TimeoutSeconds int
}

// PaymentConfig configures the checkout gateway.
type PaymentConfig struct {
	StripeSecretKey  string
	Currency         string
	ShippingCost     float64
	AllowedCountries []string
}

// LoadConfig reads configuration from an optional file and the
// environment, then validates it. A configuration without all four token
// secrets is rejected.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setConfigDefaults(v)

	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read config file")
		}
	}

	cfg := configFromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid configuration")
	}

	return cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("port", 8001)
	v.SetDefault("frontend_url", "http://localhost:5173")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:5174"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("debug", false)

	v.SetDefault("auth.issuer", "storefront")
	v.SetDefault("auth.use_hashid", false)
	v.SetDefault("auth.verification_ttl", time.Hour)
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.reset_ttl", 15*time.Minute)
	v.SetDefault("auth.operation_timeout", DefaultOperationTimeout)

	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.dsn", "file:storefront.db?cache=shared")
	v.SetDefault("store.mongo_database", "storefront")
	v.SetDefault("store.auto_migrate", true)

	v.SetDefault("mail.provider", MailLog)
	v.SetDefault("mail.from", "Storefront <no-reply@localhost>")
	v.SetDefault("mail.smtp_port", "587")
	v.SetDefault("mail.timeout_seconds", 30)

	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.shipping_cost", 5.0)
	v.SetDefault("payment.allowed_countries", []string{"PK"})
}

// bindLegacyEnv keeps the variable names deployments already use.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("auth.verification_secret", "STOREFRONT_AUTH_VERIFICATION_SECRET", "EMAIL_TOKEN_SECRET")
	_ = v.BindEnv("auth.access_secret", "STOREFRONT_AUTH_ACCESS_SECRET", "ACCESS_TOKEN_SECRET")
	_ = v.BindEnv("auth.refresh_secret", "STOREFRONT_AUTH_REFRESH_SECRET", "REFRESH_TOKEN_SECRET")
	_ = v.BindEnv("auth.reset_secret", "STOREFRONT_AUTH_RESET_SECRET", "RESET_TOKEN_SECRET")
	_ = v.BindEnv("frontend_url", "STOREFRONT_FRONTEND_URL", "FRONTEND_URL")
	_ = v.BindEnv("store.mongo_uri", "STOREFRONT_STORE_MONGO_URI", "MONGO_URI")
	_ = v.BindEnv("payment.stripe_secret_key", "STOREFRONT_PAYMENT_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY")
	_ = v.BindEnv("mail.smtp_username", "STOREFRONT_MAIL_SMTP_USERNAME", "EMAIL_USER")
	_ = v.BindEnv("mail.smtp_password", "STOREFRONT_MAIL_SMTP_PASSWORD", "EMAIL_PASS")
}

func configFromViper(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetInt("port"),
		FrontendURL: strings.TrimRight(v.GetString("frontend_url"), "/"),
		CORSOrigins: v.GetStringSlice("cors_origins"),
		LogLevel:    v.GetString("log.level"),
		LogFormat:   v.GetString("log.format"),
		Debug:       v.GetBool("debug"),
		Auth: AuthConfig{
			Issuer:             v.GetString("auth.issuer"),
			UseHashid:          v.GetBool("auth.use_hashid"),
			VerificationSecret: v.GetString("auth.verification_secret"),
			AccessSecret:       v.GetString("auth.access_secret"),
			RefreshSecret:      v.GetString("auth.refresh_secret"),
			ResetSecret:        v.GetString("auth.reset_secret"),
			VerificationTTL:    v.GetDuration("auth.verification_ttl"),
			AccessTTL:          v.GetDuration("auth.access_ttl"),
			RefreshTTL:         v.GetDuration("auth.refresh_ttl"),
			ResetTTL:           v.GetDuration("auth.reset_ttl"),
			OperationTimeout:   v.GetDuration("auth.operation_timeout"),
		},
		Store: StoreConfig{
			Driver:        v.GetString("store.driver"),
			DSN:           v.GetString("store.dsn"),
			MongoURI:      v.GetString("store.mongo_uri"),
			MongoDatabase: v.GetString("store.mongo_database"),
			AutoMigrate:   v.GetBool("store.auto_migrate"),
		},
		Mail: MailConfig{
			Provider:       v.GetString("mail.provider"),
			From:           v.GetString("mail.from"),
			MailgunDomain:  v.GetString("mail.mailgun_domain"),
			MailgunKey:     v.GetString("mail.mailgun_key"),
			SendGridKey:    v.GetString("mail.sendgrid_key"),
			SMTPHost:       v.GetString("mail.smtp_host"),
			SMTPPort:       v.GetString("mail.smtp_port"),
			SMTPUsername:   v.GetString("mail.smtp_username"),
			SMTPPassword:   v.GetString("mail.smtp_password"),
			TimeoutSeconds: v.GetInt("mail.timeout_seconds"),
		},
		Payment: PaymentConfig{
			StripeSecretKey:  v.GetString("payment.stripe_secret_key"),
			Currency:         v.GetString("payment.currency"),
			ShippingCost:     v.GetFloat64("payment.shipping_cost"),
			AllowedCountries: v.GetStringSlice("payment.allowed_countries"),
		},
	}
}

// Validate checks the configuration before anything is started
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.FrontendURL, validation.Required, is.URL),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
		validation.Field(&c.Auth),
		validation.Field(&c.Store),
		validation.Field(&c.Mail),
		validation.Field(&c.Payment),
	)
}

// Validate requires every secret, distinct from each other.
func (a AuthConfig) Validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.VerificationSecret, validation.Required),
		validation.Field(&a.AccessSecret, validation.Required),
		validation.Field(&a.RefreshSecret, validation.Required),
		validation.Field(&a.ResetSecret, validation.Required),
		validation.Field(&a.VerificationTTL, validation.Required),
		validation.Field(&a.AccessTTL, validation.Required),
		validation.Field(&a.RefreshTTL, validation.Required),
		validation.Field(&a.ResetTTL, validation.Required),
	)
	if err != nil {
		return err
	}

	secrets := []string{a.VerificationSecret, a.AccessSecret, a.RefreshSecret, a.ResetSecret}
	seen := map[string]bool{}
	for _, s := range secrets {
		if seen[s] {
			return validation.Errors{"secrets": errors.New("token secrets must be distinct", errors.CategoryValidation)}
		}
		seen[s] = true
	}

	return nil
}

func (s StoreConfig) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&s.Driver, validation.Required, validation.In(StoreSQLite, StorePostgres, StoreMongo)),
	}
	if s.Driver == StoreMongo {
		rules = append(rules,
			validation.Field(&s.MongoURI, validation.Required),
			validation.Field(&s.MongoDatabase, validation.Required),
		)
	} else {
		rules = append(rules, validation.Field(&s.DSN, validation.Required))
	}
	return validation.ValidateStruct(&s, rules...)
}

func (m MailConfig) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&m.Provider, validation.Required, validation.In(MailLog, MailSMTP, MailMailgun, MailSendGrid)),
		validation.Field(&m.From, validation.Required),
	}
	switch m.Provider {
	case MailMailgun:
		rules = append(rules,
			validation.Field(&m.MailgunDomain, validation.Required),
			validation.Field(&m.MailgunKey, validation.Required),
		)
	case MailSendGrid:
		rules = append(rules, validation.Field(&m.SendGridKey, validation.Required))
	case MailSMTP:
		rules = append(rules,
			validation.Field(&m.SMTPHost, validation.Required),
			validation.Field(&m.SMTPPort, validation.Required),
			validation.Field(&m.SMTPUsername, validation.Required),
			validation.Field(&m.SMTPPassword, validation.Required),
		)
	}
	return validation.ValidateStruct(&m, rules...)
}

func (p PaymentConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Currency, validation.Required),
		validation.Field(&p.ShippingCost, validation.Min(0.0)),
		validation.Field(&p.AllowedCountries, validation.Required),
	)
}

// Tokens builds the explicit token issuer configuration
func (c Config) Tokens() TokenConfig {
	return TokenConfig{
		Issuer:       c.Auth.Issuer,
		Verification: TokenKindConfig{Secret: c.Auth.VerificationSecret, TTL: c.Auth.VerificationTTL},
		Access:       TokenKindConfig{Secret: c.Auth.AccessSecret, TTL: c.Auth.AccessTTL},
		Refresh:      TokenKindConfig{Secret: c.Auth.RefreshSecret, TTL: c.Auth.RefreshTTL},
		Reset:        TokenKindConfig{Secret: c.Auth.ResetSecret, TTL: c.Auth.ResetTTL},
	}
}

// MailTimeout is the per message send timeout
func (c Config) MailTimeout() time.Duration {
	if c.Mail.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}
