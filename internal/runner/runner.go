package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"chatrunner/internal/client"
	"chatrunner/internal/core"
	"chatrunner/internal/log"
	"chatrunner/internal/util"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
)

// Config runner dependencies
type Config struct {
	Completer       core.ChatCompleter
	History         core.HistoryStore
	Logger          core.Logger
	Stdout          io.Writer
	Stderr          io.Writer
	FailureExitCode int
}

// Runner performs one chat completion exchange and reports it on the console.
// A Runner is single-use: the remote service is called at most once.
type Runner struct {
	completer       core.ChatCompleter
	history         core.HistoryStore
	logger          core.Logger
	stdout          io.Writer
	stderr          io.Writer
	failureExitCode int

	state   core.RunState
	outcome core.Outcome
}

// NewRunner creates a runner in the AwaitingCredential state
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required in runner Config")
	}
	if cfg.Stdout == nil || cfg.Stderr == nil {
		return nil, fmt.Errorf("stdout and stderr are required in runner Config")
	}
	if cfg.Logger == nil {
		cfg.Logger = &core.NopLogger{}
	}
	if cfg.History == nil {
		cfg.History = &core.NopHistory{}
	}

	return &Runner{
		completer:       cfg.Completer,
		history:         cfg.History,
		logger:          cfg.Logger,
		stdout:          cfg.Stdout,
		stderr:          cfg.Stderr,
		failureExitCode: cfg.FailureExitCode,
		state:           core.StateAwaitingCredential,
	}, nil
}

// NewChatCompletionRequest builds the fixed single-message request
func NewChatCompletionRequest() openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: core.DefaultModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    core.RoleUser,
				Content: core.DefaultPrompt,
			},
		},
	}
}

// State returns the current run state
func (r *Runner) State() core.RunState {
	return r.state
}

// Run sends the request, waits for the reply and prints either
// "Response: <text>" to stdout or "Error: <message>" to stderr.
// Calling Run again returns the first outcome without another request.
func (r *Runner) Run(ctx context.Context) core.Outcome {
	if r.state.Terminal() {
		r.logger.Warn("Runner already used (state %s), not sending again", r.state)
		return r.outcome
	}

	runID := util.NewRunID()
	ctx = client.WithRunID(ctx, runID)
	request := NewChatCompletionRequest()

	r.state = core.StateSending
	r.logger.Debug("Run %s: sending chat completion request, model=%s, messages=%d", runID, request.Model, len(request.Messages))

	startedAt := time.Now()
	text, err := r.complete(ctx, request)
	outcome := core.Outcome{
		RunID:    runID,
		Text:     text,
		Err:      err,
		Duration: time.Since(startedAt),
	}

	if err != nil {
		outcome.State = core.StateFailed
		r.logger.Debug("Run %s failed after %v: %v", runID, outcome.Duration, err)
		_, _ = fmt.Fprintf(r.stderr, "%s%s\n", core.ErrorLabel, core.Describe(err))
	} else {
		outcome.State = core.StateSucceeded
		r.logger.Debug("Run %s succeeded after %v", runID, outcome.Duration)
		_, _ = fmt.Fprintf(r.stdout, "%s%s\n", core.ResponseLabel, text)
	}

	r.state = outcome.State
	r.outcome = outcome
	r.saveRecord(ctx, startedAt, request.Model, outcome)

	return outcome
}

// ExitCode maps the current state to a process exit status
func (r *Runner) ExitCode() int {
	if r.state.Terminal() && !r.outcome.Succeeded() {
		return r.failureExitCode
	}
	return core.ExitCodeSuccess
}

func (r *Runner) complete(ctx context.Context, request openai.ChatCompletionRequest) (string, error) {
	if log.IsDebug() {
		requestJSON, _ := sonic.MarshalIndent(request, "", "  ")
		r.logger.Debug("Chat completion request: %s", string(requestJSON))
	}

	resp, err := r.completer.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", core.ErrCompletionFailed(err)
	}

	if log.IsDebug() {
		respJSON, _ := sonic.MarshalIndent(resp, "", "  ")
		r.logger.Debug("Chat completion response: %s", string(respJSON))
	}

	if len(resp.Choices) == 0 {
		return "", core.ErrEmptyCompletion()
	}

	return resp.Choices[0].Message.Content, nil
}

func (r *Runner) saveRecord(ctx context.Context, startedAt time.Time, model string, outcome core.Outcome) {
	record := &core.RunRecord{
		ID:            outcome.RunID,
		StartedAt:     startedAt.UTC(),
		Model:         model,
		State:         outcome.State.String(),
		DurationMs:    outcome.Duration.Milliseconds(),
		ErrorCode:     core.ErrorCode(outcome.Err),
		ResponseChars: util.CharCount(outcome.Text),
	}
	if outcome.Err != nil {
		record.Error = core.Describe(outcome.Err)
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), core.HistoryOpTimeout)
	defer cancel()

	if err := r.history.SaveRecord(saveCtx, record); err != nil {
		r.logger.Warn("Failed to save run record %s: %v", record.ID, err)
	}
}
