// Package upstreamtest provides an in-process chat completion service for tests.
package upstreamtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"chatrunner/internal/core"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
)

// Mode selects how the server answers.
type Mode int

const (
	// ModeReply answers with a single choice carrying Reply.Content.
	ModeReply Mode = iota
	// ModeNoChoices answers 200 with an empty choices list.
	ModeNoChoices
	// ModeAPIError answers Reply.Status with an OpenAI error body.
	ModeAPIError
	// ModeDropConnection closes the connection without answering.
	ModeDropConnection
)

// Reply configures the server response.
type Reply struct {
	Mode    Mode
	Content string
	Status  int
	Message string
}

// Received is one request seen by the server.
type Received struct {
	Header  http.Header
	Request openai.ChatCompletionRequest
	RawBody []byte
}

// Server is a fake chat completion endpoint served by gin.
type Server struct {
	*httptest.Server

	reply    Reply
	mu       sync.Mutex
	received []Received
}

// NewServer starts a fake upstream. Callers must Close it.
func NewServer(reply Reply) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{reply: reply}

	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/chat/completions", s.chatCompletions)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "unknown route " + c.Request.URL.Path}})
	})

	s.Server = httptest.NewServer(router)
	return s
}

// BaseURL is the value for OPENAI_BASE_URL.
func (s *Server) BaseURL() string {
	return s.URL
}

// Calls returns the number of completion requests received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

// Requests returns a copy of the received requests.
func (s *Server) Requests() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Received, len(s.received))
	copy(out, s.received)
	return out
}

func (s *Server) chatCompletions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	var request openai.ChatCompletionRequest
	if err := sonic.Unmarshal(body, &request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	s.mu.Lock()
	s.received = append(s.received, Received{
		Header:  c.Request.Header.Clone(),
		Request: request,
		RawBody: body,
	})
	s.mu.Unlock()

	switch s.reply.Mode {
	case ModeAPIError:
		status := s.reply.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": gin.H{
			"message": s.reply.Message,
			"type":    "invalid_request_error",
			"code":    nil,
		}})
	case ModeDropConnection:
		conn, _, err := c.Writer.Hijack()
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		_ = conn.Close()
	case ModeNoChoices:
		c.JSON(http.StatusOK, completion(request.Model, nil))
	default:
		c.JSON(http.StatusOK, completion(request.Model, []openai.ChatCompletionChoice{{
			Index: 0,
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: s.reply.Content,
			},
			FinishReason: openai.FinishReasonStop,
		}}))
	}
}

func completion(model string, choices []openai.ChatCompletionChoice) openai.ChatCompletionResponse {
	if choices == nil {
		choices = []openai.ChatCompletionChoice{}
	}
	return openai.ChatCompletionResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: choices,
		Usage:   openai.Usage{PromptTokens: 14, CompletionTokens: 12, TotalTokens: 26},
	}
}

// ExpectSingleUserPrompt reports whether request carries exactly one user
// message with the fixed prompt.
func ExpectSingleUserPrompt(request openai.ChatCompletionRequest) bool {
	return len(request.Messages) == 1 &&
		request.Messages[0].Role == core.RoleUser &&
		request.Messages[0].Content == core.DefaultPrompt
}
