package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"chatrunner/internal/core"
	"chatrunner/internal/util"

	"github.com/joho/godotenv"
)

// RunnerConfig runner configuration, populated once at startup
type RunnerConfig struct {
	APIKey             string
	BaseURL            string
	OrgID              string
	FailureExitCode    int
	HistoryFile        string
	RedisURL           string
	HTTPClientSettings HTTPClientSettings
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	// RequestTimeout bounds the whole exchange. Zero means no limit.
	RequestTimeout time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:          core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost:   core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:       core.HTTPMaxConnsPerHost,
		IdleConnTimeout:       core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   core.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: core.HTTPResponseHeaderTimeout,
	}
}

// LoadDotEnv loads the files named by RUNNER_ENV_FILE (default ".env").
// Variables already present in the environment are never overridden, and
// missing files are skipped. It runs before the logger exists, so it reports
// the files it loaded instead of logging.
func LoadDotEnv() ([]string, error) {
	files := util.ParseEnvList(os.Getenv(core.EnvEnvFile))
	if len(files) == 0 {
		files = []string{core.DefaultEnvFile}
	}

	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("failed to load %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// APIKeyFromEnv returns the trimmed credential, or a missing-key error when it
// is absent or blank.
func APIKeyFromEnv() (string, error) {
	apiKey := strings.TrimSpace(os.Getenv(core.EnvAPIKey))
	if apiKey == "" {
		return "", core.ErrMissingAPIKey()
	}
	return apiKey, nil
}

// LoadRunnerConfigFromEnv loads runner config from environment variables
func LoadRunnerConfigFromEnv(logger core.Logger) (RunnerConfig, error) {
	apiKey, err := APIKeyFromEnv()
	if err != nil {
		return RunnerConfig{}, err
	}
	logger.Debug("Loaded API key %s", util.MaskSecret(apiKey))

	settings := DefaultHTTPClientSettings()
	settings.RequestTimeout = parseRequestTimeout(os.Getenv(core.EnvRequestTimeout), logger)

	config := RunnerConfig{
		APIKey:             apiKey,
		BaseURL:            strings.TrimRight(util.GetEnvWithDefault(core.EnvBaseURL, core.DefaultBaseURL), "/"),
		OrgID:              strings.TrimSpace(os.Getenv(core.EnvOrgID)),
		FailureExitCode:    parseFailureExitCode(os.Getenv(core.EnvFailureExitCode), logger),
		HistoryFile:        strings.TrimSpace(os.Getenv(core.EnvHistoryFile)),
		RedisURL:           strings.TrimSpace(os.Getenv(core.EnvRedisURL)),
		HTTPClientSettings: settings,
	}

	if config.BaseURL != core.DefaultBaseURL {
		logger.Info("Using completion endpoint %s", config.BaseURL)
	}

	return config, nil
}

func parseFailureExitCode(value string, logger core.Logger) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return core.DefaultFailureExitCode
	}

	code, err := strconv.Atoi(value)
	if err != nil || code < 0 || code > core.MaxFailureExitCode {
		logger.Warn("Invalid %s value '%s', using default %d", core.EnvFailureExitCode, value, core.DefaultFailureExitCode)
		return core.DefaultFailureExitCode
	}
	return code
}

func parseRequestTimeout(value string, logger core.Logger) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	timeout, err := time.ParseDuration(value)
	if err != nil || timeout < 0 {
		logger.Warn("Invalid %s value '%s', running without a request timeout", core.EnvRequestTimeout, value)
		return 0
	}
	return timeout
}
