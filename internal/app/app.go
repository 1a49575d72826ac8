// Package app wires configuration, logging, history and the runner into the
// chatrunner command.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"chatrunner/internal/client"
	"chatrunner/internal/config"
	"chatrunner/internal/core"
	logpkg "chatrunner/internal/log"
	"chatrunner/internal/runner"
	"chatrunner/internal/storage"
)

// Main runs one invocation and returns the process exit status.
func Main(ctx context.Context, stdout, stderr io.Writer) int {
	loaded, dotenvErr := config.LoadDotEnv()

	// Nothing but the two hint lines is written when the credential is missing.
	if _, err := config.APIKeyFromEnv(); err != nil {
		_, _ = fmt.Fprintln(stderr, core.MissingKeyHint)
		_, _ = fmt.Fprintln(stderr, core.APIKeyURLHint)
		return core.ExitCodeConfigError
	}

	logger := logpkg.CreateLogger(stderr)
	defer func() { _ = logger.Close() }()

	switch {
	case dotenvErr != nil:
		logger.Warn("%v, using system environment variables", dotenvErr)
	case len(loaded) == 0:
		logger.Debug("No .env file found, using system environment variables")
	default:
		logger.Debug("Loaded environment from %s", strings.Join(loaded, ", "))
	}

	cfg, err := config.LoadRunnerConfigFromEnv(logger)
	if err != nil {
		logger.Error("Failed to load runner configuration: %v", err)
		return core.ExitCodeConfigError
	}

	history := storage.InitStorage(ctx, cfg.RedisURL, cfg.HistoryFile, logger)
	defer func() {
		if err := history.Close(); err != nil {
			logger.Warn("Failed to close history storage: %v", err)
		}
	}()

	completer := client.New(cfg, client.NewHTTPClient(cfg.HTTPClientSettings))

	r, err := runner.NewRunner(runner.Config{
		Completer:       completer,
		History:         history,
		Logger:          logger,
		Stdout:          stdout,
		Stderr:          stderr,
		FailureExitCode: cfg.FailureExitCode,
	})
	if err != nil {
		logger.Error("Failed to create runner: %v", err)
		return core.ExitCodeConfigError
	}

	outcome := r.Run(ctx)
	if outcome.Succeeded() {
		logger.Info("Run %s succeeded in %v", outcome.RunID, outcome.Duration)
	} else {
		logger.Info("Run %s failed in %v: %s", outcome.RunID, outcome.Duration, core.ErrorCode(outcome.Err))
	}

	return r.ExitCode()
}
