package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/flagx"
	"github.com/dmitrijs2005/paydesk/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept "30m"-style strings or integer nanoseconds.
// Absent (zero) fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	RedisAddr                    string         `json:"redis_addr"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     string         `json:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	SMTPFrom                     string         `json:"smtp_from"`
	LockoutThreshold             int            `json:"lockout_threshold"`
	LockoutDuration              timex.Duration `json:"lockout_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`
	PermanentBlockWithoutExpiry  *bool          `json:"permanent_block_without_expiry"`
	LogLevel                     string         `json:"log_level"`
	LogDev                       *bool          `json:"log_dev"`
}

// parseJson loads the file named by -c/-config (if any) over config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	if c.LockoutThreshold > 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	if c.PermanentBlockWithoutExpiry != nil {
		config.PermanentBlockWithoutExpiry = *c.PermanentBlockWithoutExpiry
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.LogDev != nil {
		config.LogDev = *c.LogDev
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
