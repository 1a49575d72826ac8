package core

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ChatCompleter is the remote completion service. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// HistoryStore persists run records.
type HistoryStore interface {
	SaveRecord(ctx context.Context, record *RunRecord) error
	LoadRecords(ctx context.Context) ([]RunRecord, error)
	Close() error
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}

// NopHistory discards records.
type NopHistory struct{}

func (*NopHistory) SaveRecord(ctx context.Context, record *RunRecord) error { return nil }
func (*NopHistory) LoadRecords(ctx context.Context) ([]RunRecord, error)   { return nil, nil }
func (*NopHistory) Close() error                                           { return nil }
