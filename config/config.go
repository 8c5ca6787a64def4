// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is accepted in front of every key, e.g. SURVIVAL_DB_DRIVER.
const EnvPrefix = "SURVIVAL"

// DatabaseConfig describes the destination warehouse connection.
type DatabaseConfig struct {
	Driver        string `envconfig:"DB_DRIVER" default:"snowflake" validate:"oneof=mysql postgres snowflake sqlite"`
	Account       string `envconfig:"ACCOUNT" validate:"required_if=Driver snowflake"`
	Host          string `envconfig:"DB_HOST" validate:"required_if=Driver mysql,required_if=Driver postgres"`
	Port          int    `envconfig:"DB_PORT" validate:"gte=0,lte=65535"`
	User          string `envconfig:"DB_USER"`
	Password      string `envconfig:"DB_PASSWORD"`
	Authenticator string `envconfig:"AUTHENTICATOR" validate:"omitempty,oneof=snowflake externalbrowser oauth"`
	Role          string `envconfig:"ROLE"`
	Warehouse     string `envconfig:"WAREHOUSE"`
	Database      string `envconfig:"DATABASE" validate:"required_if=Driver snowflake,required_if=Driver sqlite"`
	Schema        string `envconfig:"SCHEMA" validate:"omitempty,identifier"`
	SSLMode       string `envconfig:"DB_SSLMODE" default:"disable"`
	BatchSize     int    `envconfig:"LOAD_BATCH_SIZE" default:"500" validate:"gte=1"`
	LoadLogTable  string `envconfig:"LOAD_LOG_TABLE" validate:"omitempty,identifier"`
}

// StagingConfig says where downloaded workbooks are kept between the scrape
// and process steps.
type StagingConfig struct {
	Mode              string `envconfig:"STAGING_MODE" default:"local" validate:"oneof=local s3 memory"`
	DataDir           string `envconfig:"DATA_DIR" default:"./data" validate:"required_if=Mode local"`
	Extension         string `envconfig:"FILE_EXTENSION" default:".xlsx" validate:"startswith=."`
	S3Endpoint        string `envconfig:"S3_ENDPOINT" validate:"omitempty,url"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket          string `envconfig:"S3_BUCKET" validate:"required_if=Mode s3"`
	S3Prefix          string `envconfig:"S3_PREFIX"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID" validate:"required_if=Mode s3"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY" validate:"required_if=Mode s3"`
}

// SourceConfig describes the publisher site.
type SourceConfig struct {
	Publication   string        `envconfig:"PUBLICATION" default:"cancer-survival-in-england" validate:"required"`
	BaseURL       string        `envconfig:"NHSD_BASE_URL" default:"https://digital.nhs.uk/data-and-information/publications/statistical" validate:"url"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" validate:"gt=0"`
	FetchInterval time.Duration `envconfig:"FETCH_INTERVAL" default:"500ms" validate:"gte=0"`
}

// Config is the whole run configuration. It is built once by Load and passed
// by value afterwards.
type Config struct {
	DatabaseConfig
	StagingConfig
	SourceConfig

	DestinationIndex   string   `envconfig:"DESTINATION_INDEX" validate:"required,identifier"`
	DestinationAdult   string   `envconfig:"DESTINATION_ADULT" validate:"required,identifier"`
	CoreGeographyCodes []string `envconfig:"CORE_GEOGRAPHY_CODES"`
	GeographiesFile    string   `envconfig:"GEOGRAPHIES_FILE"`
	PolicyFile         string   `envconfig:"POLICY_FILE"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Load reads envFile into the environment when it exists (its values win
// over the process environment), then decodes and validates the config.
// An empty envFile means the ENV_FILE key, or ".env" when that is unset.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = EnvFile()
	}
	if err := godotenv.Overload(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.CoreGeographyCodes = trimCodes(cfg.CoreGeographyCodes)
	cfg.Extension = strings.ToLower(cfg.Extension)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvFile returns the dotenv path named by SURVIVAL_ENV_FILE or ENV_FILE,
// defaulting to ".env".
func EnvFile() string {
	for _, key := range []string{EnvPrefix + "_ENV_FILE", "ENV_FILE"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ".env"
}

// Validate checks field constraints.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("identifier", isIdentifier); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func isIdentifier(fl validator.FieldLevel) bool {
	return identifierPattern.MatchString(fl.Field().String())
}

func trimCodes(codes []string) []string {
	out := codes[:0]
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
