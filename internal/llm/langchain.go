package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 10
)

// LangChainCompleter implements Completer on top of a langchaingo model.
type LangChainCompleter struct {
	model   llms.Model
	name    string
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a LangChainCompleter.
type Option func(*LangChainCompleter)

// WithRateLimit limits outbound calls to rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *LangChainCompleter) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds every call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *LangChainCompleter) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *LangChainCompleter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewLangChainCompleter wraps model. name is the default model name reported
// in logs and sent when a Request does not override it.
func NewLangChainCompleter(model llms.Model, name string, opts ...Option) *LangChainCompleter {
	c := &LangChainCompleter{
		model:   model,
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelName returns the default model name.
func (c *LangChainCompleter) ModelName() string {
	return c.name
}

// Complete sends the system and user prompts as a two-message chat.
func (c *LangChainCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = c.name
	}

	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if model != "" {
		callOpts = append(callOpts, llms.WithModel(model))
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", classify(fmt.Errorf("generate content (%s): %w", model, err))
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(resp.Choices[0].Content)),
	)
	return resp.Choices[0].Content, nil
}
