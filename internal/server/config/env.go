package config

import (
	"time"

	env "github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// envConfig mirrors Config with env tags. Absent variables leave the
// corresponding field at its zero value, which parseEnv treats as "not
// set" and skips.
type envConfig struct {
	RunAddr                 string        `env:"RUN_ADDRESS"`
	DatabaseDSN             string        `env:"DATABASE_DSN"`
	SecretKey               string        `env:"SECRET_KEY"`
	OTPValidityDuration     time.Duration `env:"OTP_VALIDITY_DURATION"`
	SessionValidityDuration time.Duration `env:"SESSION_VALIDITY_DURATION"`
	S3RootUser              string        `env:"S3_ROOT_USER"`
	S3RootPassword          string        `env:"S3_ROOT_PASSWORD"`
	S3Bucket                string        `env:"S3_BUCKET"`
	S3Region                string        `env:"S3_REGION"`
	S3BaseEndpoint          string        `env:"S3_BASE_ENDPOINT"`
	SMTPAddr                string        `env:"SMTP_ADDR"`
	SMTPFrom                string        `env:"SMTP_FROM"`
}

// parseEnv overlays Config with values from the environment. A .env file
// in the working directory is loaded first when present; a missing file
// is not an error.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	e := envConfig{}
	if err := env.Parse(&e); err != nil {
		panic(err)
	}

	if e.RunAddr != "" {
		config.RunAddr = e.RunAddr
	}
	if e.DatabaseDSN != "" {
		config.DatabaseDSN = e.DatabaseDSN
	}
	if e.SecretKey != "" {
		config.SecretKey = e.SecretKey
	}
	if e.OTPValidityDuration != 0 {
		config.OTPValidityDuration = e.OTPValidityDuration
	}
	if e.SessionValidityDuration != 0 {
		config.SessionValidityDuration = e.SessionValidityDuration
	}
	if e.S3RootUser != "" {
		config.S3RootUser = e.S3RootUser
	}
	if e.S3RootPassword != "" {
		config.S3RootPassword = e.S3RootPassword
	}
	if e.S3Bucket != "" {
		config.S3Bucket = e.S3Bucket
	}
	if e.S3Region != "" {
		config.S3Region = e.S3Region
	}
	if e.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = e.S3BaseEndpoint
	}
	if e.SMTPAddr != "" {
		config.SMTPAddr = e.SMTPAddr
	}
	if e.SMTPFrom != "" {
		config.SMTPFrom = e.SMTPFrom
	}
}
