package core

// Completion request constants. The request content is fixed and does not
// depend on configuration.
const (
	DefaultModel  = "gpt-3.5-turbo"
	DefaultPrompt = "Write a one-sentence bedtime story about a unicorn."
	RoleUser      = "user"
)

// Upstream endpoint constants
const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	HeaderClientRequestID  = "X-Client-Request-Id"
	APIKeyVisibleSuffixLen = 4
)

// Environment variable names
const (
	EnvAPIKey          = "OPENAI_API_KEY"
	EnvBaseURL         = "OPENAI_BASE_URL"
	EnvOrgID           = "OPENAI_ORG_ID"
	EnvEnvFile         = "RUNNER_ENV_FILE"
	EnvFailureExitCode = "RUNNER_FAILURE_EXIT_CODE"
	EnvRequestTimeout  = "RUNNER_REQUEST_TIMEOUT"
	EnvHistoryFile     = "RUNNER_HISTORY_FILE"
	EnvRedisURL        = "REDIS_URL"
	EnvLogLevel        = "LOG_LEVEL"
	EnvDebugFile       = "DEBUG_FILE"
	DefaultEnvFile     = ".env"
)

// Console output constants
const (
	ResponseLabel  = "Response: "
	ErrorLabel     = "Error: "
	MissingKeyHint = "Please set your OPENAI_API_KEY in your .env file."
	APIKeyURLHint  = "You can get an API key from: https://platform.openai.com/account/api-keys"

	EmptyCompletionDescription = "no choices in response"
)

// Process exit codes
const (
	ExitCodeSuccess        = 0
	ExitCodeConfigError    = 1
	DefaultFailureExitCode = 2
	MaxFailureExitCode     = 125
)

// ID prefix constants
const (
	RunIDPrefix = "run-"
)
