package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Runner names the sandbox implementation used for grading.
const (
	RunnerVM        = "vm"
	RunnerContainer = "container"
)

// Queue names the grading job transport.
const (
	QueueLocal = "local"
	QueueRedis = "redis"
	QueueNATS  = "nats"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	CORSOrigins      string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	QuestionCacheTTL time.Duration
	SubmitRateLimit  int
	Grading          GradingConfig
}

// GradingConfig groups the knobs of the grading pipeline.
type GradingConfig struct {
	Runner            string
	Queue             string
	Workers           int
	QueueKey          string
	NATSSubject       string
	CaseTimeout       time.Duration
	SubmissionTimeout time.Duration
	MaxCallStack      int
	ContainerImage    string
	MemoryLimitMB     int64
	CPUShares         int64
	DockerHost        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEPRAC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Code Practice API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("questions.cache_ttl", "30s")
	v.SetDefault("submit.rate_limit", 10)
	v.SetDefault("grading.runner", RunnerVM)
	v.SetDefault("grading.queue", QueueLocal)
	v.SetDefault("grading.workers", 4)
	v.SetDefault("grading.queue_key", "codepractice:grading:queue")
	v.SetDefault("grading.nats_subject", "codepractice.grading")
	v.SetDefault("grading.case_timeout", "2s")
	v.SetDefault("grading.submission_timeout", "30s")
	v.SetDefault("grading.max_call_stack", 4096)
	v.SetDefault("grading.container_image", "node:20-alpine")
	v.SetDefault("grading.memory_mb", 128)
	v.SetDefault("grading.cpu_shares", 512)
}

func fromViper(v *viper.Viper) (Config, error) {
	cacheTTL, err := duration(v, "questions.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	caseTimeout, err := duration(v, "grading.case_timeout")
	if err != nil {
		return Config{}, err
	}
	submissionTimeout, err := duration(v, "grading.submission_timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		CORSOrigins:      v.GetString("cors.origins"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		QuestionCacheTTL: cacheTTL,
		SubmitRateLimit:  v.GetInt("submit.rate_limit"),
		Grading: GradingConfig{
			Runner:            strings.ToLower(strings.TrimSpace(v.GetString("grading.runner"))),
			Queue:             strings.ToLower(strings.TrimSpace(v.GetString("grading.queue"))),
			Workers:           v.GetInt("grading.workers"),
			QueueKey:          v.GetString("grading.queue_key"),
			NATSSubject:       v.GetString("grading.nats_subject"),
			CaseTimeout:       caseTimeout,
			SubmissionTimeout: submissionTimeout,
			MaxCallStack:      v.GetInt("grading.max_call_stack"),
			ContainerImage:    v.GetString("grading.container_image"),
			MemoryLimitMB:     v.GetInt64("grading.memory_mb"),
			CPUShares:         v.GetInt64("grading.cpu_shares"),
			DockerHost:        v.GetString("docker_host"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be provided")
	}

	switch c.Grading.Runner {
	case RunnerVM, RunnerContainer:
	default:
		return fmt.Errorf("unknown grading runner %q", c.Grading.Runner)
	}

	switch c.Grading.Queue {
	case QueueLocal:
	case QueueRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis grading queue")
		}
	case QueueNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("nats url is required for the nats grading queue")
		}
	default:
		return fmt.Errorf("unknown grading queue %q", c.Grading.Queue)
	}

	if c.Grading.Workers <= 0 {
		return fmt.Errorf("grading workers must be positive")
	}
	if c.Grading.CaseTimeout <= 0 || c.Grading.SubmissionTimeout <= 0 {
		return fmt.Errorf("grading timeouts must be positive")
	}
	return nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
