package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays PAYDESK_* environment variables. A dotenv file named by
// -env-file is loaded first; a missing ./.env is not an error. Variables
// already present in the process environment are never overwritten by the file.
// Malformed numeric or boolean values panic, like the other sources.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	envString("PAYDESK_GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("PAYDESK_DATABASE_DSN", &config.DatabaseDSN)
	envString("PAYDESK_SECRET_KEY", &config.SecretKey)
	envDuration("PAYDESK_ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	envDuration("PAYDESK_REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	envString("PAYDESK_S3_USER", &config.S3RootUser)
	envString("PAYDESK_S3_PASSWORD", &config.S3RootPassword)
	envString("PAYDESK_S3_BUCKET", &config.S3Bucket)
	envString("PAYDESK_S3_REGION", &config.S3Region)
	envString("PAYDESK_S3_ENDPOINT", &config.S3BaseEndpoint)
	envString("PAYDESK_REDIS_ADDR", &config.RedisAddr)
	envString("PAYDESK_SMTP_HOST", &config.SMTPHost)
	envString("PAYDESK_SMTP_PORT", &config.SMTPPort)
	envString("PAYDESK_SMTP_USER", &config.SMTPUser)
	envString("PAYDESK_SMTP_PASSWORD", &config.SMTPPassword)
	envString("PAYDESK_SMTP_FROM", &config.SMTPFrom)
	envInt("PAYDESK_LOCKOUT_THRESHOLD", &config.LockoutThreshold)
	envDuration("PAYDESK_LOCKOUT_DURATION", &config.LockoutDuration)
	envDuration("PAYDESK_RESET_TOKEN_TTL", &config.ResetTokenValidityDuration)
	envBool("PAYDESK_PERMANENT_BLOCK_WITHOUT_EXPIRY", &config.PermanentBlockWithoutExpiry)
	envString("PAYDESK_LOG_LEVEL", &config.LogLevel)
	envBool("PAYDESK_LOG_DEV", &config.LogDev)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		*dst = b
	}
}
