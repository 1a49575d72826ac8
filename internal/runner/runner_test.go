package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"chatrunner/internal/client"
	"chatrunner/internal/config"
	"chatrunner/internal/core"
	"chatrunner/internal/upstreamtest"

	"github.com/sashabaranov/go-openai"
)

const unicornStory = "Once upon a time, a unicorn fell asleep under the stars."

type fakeCompleter struct {
	response openai.ChatCompletionResponse
	err      error
	calls    int
	requests []openai.ChatCompletionRequest
	runIDs   []string
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.requests = append(f.requests, request)
	if runID, ok := client.RunIDFromContext(ctx); ok {
		f.runIDs = append(f.runIDs, runID)
	}
	return f.response, f.err
}

func replyWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "second candidate"}},
		},
	}
}

type memoryHistory struct {
	records []core.RunRecord
	err     error
}

func (m *memoryHistory) SaveRecord(ctx context.Context, record *core.RunRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryHistory) LoadRecords(ctx context.Context) ([]core.RunRecord, error) {
	return m.records, m.err
}

func (m *memoryHistory) Close() error { return nil }

type recordingLogger struct {
	core.NopLogger
	warnings []string
}

func (l *recordingLogger) Warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func newTestRunner(t *testing.T, completer core.ChatCompleter, history core.HistoryStore, logger core.Logger) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	r, err := NewRunner(Config{
		Completer:       completer,
		History:         history,
		Logger:          logger,
		Stdout:          &stdout,
		Stderr:          &stderr,
		FailureExitCode: core.DefaultFailureExitCode,
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r, &stdout, &stderr
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no completer", Config{Stdout: &buf, Stderr: &buf}},
		{"no stdout", Config{Completer: &fakeCompleter{}, Stderr: &buf}},
		{"no stderr", Config{Completer: &fakeCompleter{}, Stdout: &buf}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRunner(tt.cfg); err == nil {
				t.Error("Expected error for incomplete Config")
			}
		})
	}
}

func TestNewChatCompletionRequest(t *testing.T) {
	request := NewChatCompletionRequest()

	if request.Model != core.DefaultModel {
		t.Errorf("Expected model %s, got %s", core.DefaultModel, request.Model)
	}
	if !upstreamtest.ExpectSingleUserPrompt(request) {
		t.Errorf("Expected exactly one user message with the fixed prompt, got %+v", request.Messages)
	}
	if request.Stream {
		t.Error("Request must not ask for streaming")
	}
}

func TestRun_Success(t *testing.T) {
	completer := &fakeCompleter{response: replyWith(unicornStory)}
	history := &memoryHistory{}
	r, stdout, stderr := newTestRunner(t, completer, history, nil)

	if r.State() != core.StateAwaitingCredential {
		t.Fatalf("Expected initial state %s, got %s", core.StateAwaitingCredential, r.State())
	}

	outcome := r.Run(context.Background())

	if got := stdout.String(); got != "Response: "+unicornStory+"\n" {
		t.Errorf("Unexpected stdout: %q", got)
	}
	if stderr.Len() != 0 {
		t.Errorf("Expected empty stderr, got %q", stderr.String())
	}
	if !outcome.Succeeded() || r.State() != core.StateSucceeded {
		t.Errorf("Expected succeeded, got %s", r.State())
	}
	if outcome.Text != unicornStory {
		t.Errorf("Only the first candidate should be used, got %q", outcome.Text)
	}
	if r.ExitCode() != core.ExitCodeSuccess {
		t.Errorf("Expected exit code 0, got %d", r.ExitCode())
	}

	if len(history.records) != 1 {
		t.Fatalf("Expected 1 run record, got %d", len(history.records))
	}
	record := history.records[0]
	if record.ID != outcome.RunID || record.State != "succeeded" || record.ErrorCode != "" {
		t.Errorf("Unexpected record: %+v", record)
	}
	if record.ResponseChars != len([]rune(unicornStory)) {
		t.Errorf("Expected %d response chars, got %d", len([]rune(unicornStory)), record.ResponseChars)
	}
}

func TestRun_TransportError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection reset")}
	history := &memoryHistory{}
	r, stdout, stderr := newTestRunner(t, completer, history, nil)

	outcome := r.Run(context.Background())

	if got := stderr.String(); got != "Error: connection reset\n" {
		t.Errorf("Unexpected stderr: %q", got)
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected empty stdout, got %q", stdout.String())
	}
	if r.State() != core.StateFailed {
		t.Errorf("Expected failed, got %s", r.State())
	}
	if core.ErrorCode(outcome.Err) != core.ErrCodeCompletionFailed {
		t.Errorf("Expected %s, got %v", core.ErrCodeCompletionFailed, outcome.Err)
	}
	if r.ExitCode() != core.DefaultFailureExitCode {
		t.Errorf("Expected exit code %d, got %d", core.DefaultFailureExitCode, r.ExitCode())
	}
	if len(history.records) != 1 || history.records[0].Error != "connection reset" {
		t.Errorf("Unexpected history: %+v", history.records)
	}
}

type failingTransport struct {
	err   error
	calls int
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, f.err
}

func TestRun_TransportErrorThroughClient(t *testing.T) {
	transport := &failingTransport{err: errors.New("connection reset")}
	completer := client.New(config.RunnerConfig{
		APIKey:  "sk-test",
		BaseURL: "https://api.example.invalid/v1",
	}, &http.Client{Transport: transport})
	history := &memoryHistory{}
	r, stdout, stderr := newTestRunner(t, completer, history, nil)

	outcome := r.Run(context.Background())

	if got := stderr.String(); got != "Error: connection reset\n" {
		t.Errorf("Unexpected stderr: %q", got)
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected empty stdout, got %q", stdout.String())
	}
	if transport.calls != 1 {
		t.Errorf("Expected 1 round trip, got %d", transport.calls)
	}
	if outcome.Succeeded() {
		t.Error("Expected failed outcome")
	}
	if len(history.records) != 1 || history.records[0].Error != "connection reset" {
		t.Errorf("Unexpected history: %+v", history.records)
	}
}

func TestRun_NoChoices(t *testing.T) {
	completer := &fakeCompleter{response: openai.ChatCompletionResponse{}}
	r, stdout, stderr := newTestRunner(t, completer, nil, nil)

	outcome := r.Run(context.Background())

	if got := stderr.String(); got != "Error: "+core.EmptyCompletionDescription+"\n" {
		t.Errorf("Unexpected stderr: %q", got)
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected empty stdout, got %q", stdout.String())
	}
	if core.ErrorCode(outcome.Err) != core.ErrCodeEmptyCompletion {
		t.Errorf("Expected %s, got %v", core.ErrCodeEmptyCompletion, outcome.Err)
	}
}

func TestRun_LegacyExitCodePolicy(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r, err := NewRunner(Config{
		Completer:       &fakeCompleter{err: errors.New("boom")},
		Stdout:          &stdout,
		Stderr:          &stderr,
		FailureExitCode: 0,
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	r.Run(context.Background())
	if r.ExitCode() != 0 {
		t.Errorf("Expected configured exit code 0, got %d", r.ExitCode())
	}
}

func TestRun_SendsFixedRequestOnce(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection reset")}
	logger := &recordingLogger{}
	r, _, stderr := newTestRunner(t, completer, nil, logger)

	first := r.Run(context.Background())
	second := r.Run(context.Background())

	if completer.calls != 1 {
		t.Fatalf("Expected exactly 1 call, got %d", completer.calls)
	}
	if first.RunID != second.RunID {
		t.Error("Second Run should return the first outcome")
	}
	if strings.Count(stderr.String(), "Error:") != 1 {
		t.Errorf("Expected a single error line, got %q", stderr.String())
	}
	if len(logger.warnings) != 1 {
		t.Errorf("Expected a warning on reuse, got %v", logger.warnings)
	}
	if !upstreamtest.ExpectSingleUserPrompt(completer.requests[0]) {
		t.Errorf("Unexpected request messages: %+v", completer.requests[0].Messages)
	}
	if len(completer.runIDs) != 1 || completer.runIDs[0] != first.RunID {
		t.Errorf("Run ID should be attached to the request context, got %v", completer.runIDs)
	}
}

func TestRun_HistoryFailureDoesNotChangeOutcome(t *testing.T) {
	completer := &fakeCompleter{response: replyWith(unicornStory)}
	logger := &recordingLogger{}
	history := &memoryHistory{err: errors.New("disk full")}
	r, stdout, _ := newTestRunner(t, completer, history, logger)

	r.Run(context.Background())

	if stdout.String() != "Response: "+unicornStory+"\n" {
		t.Errorf("Unexpected stdout: %q", stdout.String())
	}
	if r.ExitCode() != core.ExitCodeSuccess {
		t.Errorf("History failure must not change the exit code, got %d", r.ExitCode())
	}
	if len(logger.warnings) != 1 || !strings.Contains(logger.warnings[0], "disk full") {
		t.Errorf("Expected a warning about history, got %v", logger.warnings)
	}
}

func TestRun_AgainstUpstream(t *testing.T) {
	upstream := upstreamtest.NewServer(upstreamtest.Reply{Content: unicornStory})
	defer upstream.Close()

	completer := client.New(config.RunnerConfig{
		APIKey:  "sk-test",
		BaseURL: upstream.BaseURL(),
	}, client.NewHTTPClient(config.DefaultHTTPClientSettings()))
	r, stdout, _ := newTestRunner(t, completer, nil, nil)

	outcome := r.Run(context.Background())

	if stdout.String() != "Response: "+unicornStory+"\n" {
		t.Errorf("Unexpected stdout: %q", stdout.String())
	}
	if upstream.Calls() != 1 {
		t.Fatalf("Expected 1 upstream call, got %d", upstream.Calls())
	}
	received := upstream.Requests()[0]
	if got := received.Header.Get(core.HeaderClientRequestID); got != outcome.RunID {
		t.Errorf("Expected %s header %q, got %q", core.HeaderClientRequestID, outcome.RunID, got)
	}
	if !upstreamtest.ExpectSingleUserPrompt(received.Request) {
		t.Errorf("Unexpected upstream request: %s", received.RawBody)
	}
}
