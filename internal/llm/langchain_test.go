package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel implements llms.Model with a configurable GenerateContent.
type fakeModel struct {
	generate func(ctx context.Context, msgs []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error)
}

func (f *fakeModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	return f.generate(ctx, msgs, opts)
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(m llms.MessageContent) string {
	for _, p := range m.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestLangChainCompleter_SendsSystemAndUser(t *testing.T) {
	var (
		gotMsgs []llms.MessageContent
		gotOpts llms.CallOptions
	)
	model := &fakeModel{generate: func(_ context.Context, msgs []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error) {
		gotMsgs, gotOpts = msgs, opts
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "texto gerado"}}}, nil
	}}

	c := NewLangChainCompleter(model, "gpt-4o", WithRateLimit(0, 0))
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "usr", Temperature: 0.25})
	require.NoError(t, err)
	assert.Equal(t, "texto gerado", out)

	require.Len(t, gotMsgs, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, gotMsgs[0].Role)
	assert.Equal(t, "sys", textOf(gotMsgs[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, gotMsgs[1].Role)
	assert.Equal(t, "usr", textOf(gotMsgs[1]))
	assert.InDelta(t, 0.25, gotOpts.Temperature, 1e-9)
	assert.Equal(t, "gpt-4o", gotOpts.Model)
}

func TestLangChainCompleter_ModelOverrideAndNoSystem(t *testing.T) {
	var gotOpts llms.CallOptions
	var gotLen int
	model := &fakeModel{generate: func(_ context.Context, msgs []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error) {
		gotOpts, gotLen = opts, len(msgs)
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
	}}

	c := NewLangChainCompleter(model, "gpt-4o", WithRateLimit(0, 0))
	_, err := c.Complete(context.Background(), Request{User: "usr", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", gotOpts.Model)
	assert.Equal(t, 1, gotLen)
}

func TestLangChainCompleter_Errors(t *testing.T) {
	boom := errors.New("upstream 503")
	failing := &fakeModel{generate: func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return nil, boom
	}}
	_, err := NewLangChainCompleter(failing, "m", WithRateLimit(0, 0)).Complete(context.Background(), Request{User: "x"})
	require.ErrorIs(t, err, boom)

	empty := &fakeModel{generate: func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{}, nil
	}}
	_, err = NewLangChainCompleter(empty, "m", WithRateLimit(0, 0)).Complete(context.Background(), Request{User: "x"})
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestLangChainCompleter_TimeoutApplied(t *testing.T) {
	model := &fakeModel{generate: func(ctx context.Context, _ []llms.MessageContent, _ llms.CallOptions) (*llms.ContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	c := NewLangChainCompleter(model, "m", WithRateLimit(0, 0), WithTimeout(20*time.Millisecond))
	_, err := c.Complete(context.Background(), Request{User: "x"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLangChainCompleter_RateLimiterHonoursContext(t *testing.T) {
	model := &fakeModel{generate: func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
	}}
	c := NewLangChainCompleter(model, "m", WithRateLimit(0.001, 1))

	_, err := c.Complete(context.Background(), Request{User: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, Request{User: "second"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestNew_ConfigErrors(t *testing.T) {
	_, err := New(Config{Provider: "openai"}, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(Config{Provider: "cohere", APIKey: "k"}, nil)
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNew_BuildsProviders(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			c, err := New(Config{Provider: provider, APIKey: "test-key", Model: "m"}, nil)
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(_ context.Context, req Request) (string, error) {
		return req.User + "!", nil
	})
	out, err := c.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}
