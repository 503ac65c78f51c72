package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	text     string
	failures int
	calls    int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, _ []Message, _ float64, _ int) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("provider unavailable")
	}
	return s.text, nil
}

func noSleep(r *Router) *Router {
	r.sleep = func(time.Duration) {}
	return r
}

func TestRouterUsesProviderWhenHealthy(t *testing.T) {
	knowledge := &stubProvider{name: "stub", text: "plan: respiration guidée"}
	r := noSleep(NewRouter(knowledge, nil))

	res := r.GenerateKnowledge(context.Background(), []Message{{Role: "user", Content: "bonjour"}})

	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, "plan: respiration guidée", res.Text)
	assert.Equal(t, "stub", res.Provider)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, knowledge.calls)
}

func TestRouterRetriesThenSucceeds(t *testing.T) {
	provider := &stubProvider{name: "stub", text: "ok", failures: 2}
	var slept []time.Duration
	r := NewRouter(provider, nil)
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	res := r.GenerateKnowledge(context.Background(), []Message{{Role: "user", Content: "bonjour"}})

	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1 * time.Second}, slept)
}

func TestRouterFallsBackAfterExhaustion(t *testing.T) {
	provider := &stubProvider{name: "stub", failures: 99}
	r := noSleep(NewRouter(provider, provider))

	long := strings.Repeat("a", 400)

	t.Run("knowledge echoes with plan prefix", func(t *testing.T) {
		res := r.GenerateKnowledge(context.Background(), []Message{{Role: "user", Content: long}})
		assert.Equal(t, SourceFallback, res.Source)
		assert.Error(t, res.Err)
		require.True(t, strings.HasPrefix(res.Text, "[PLAN] "))
		assert.Len(t, res.Text, len("[PLAN] ")+300)
	})

	t.Run("empathy echoes truncated", func(t *testing.T) {
		res := r.GenerateEmpathy(context.Background(), []Message{{Role: "user", Content: long}})
		assert.Equal(t, SourceFallback, res.Source)
		assert.Len(t, res.Text, 320)
	})
}

func TestRouterNilProviderDegradesImmediately(t *testing.T) {
	r := noSleep(NewRouter(nil, nil))

	res := r.GenerateEmpathy(context.Background(), []Message{{Role: "user", Content: "je me sens seul"}})

	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "je me sens seul", res.Text)
	assert.NoError(t, res.Err)
}

func TestRouterEmptyConversationFallback(t *testing.T) {
	r := noSleep(NewRouter(nil, nil))
	res := r.GenerateEmpathy(context.Background(), nil)
	assert.Equal(t, emptyFallback, res.Text)
}

func TestRouterStatsCountFallbacks(t *testing.T) {
	provider := &stubProvider{name: "stub", text: "ok"}
	r := noSleep(NewRouter(provider, nil))

	r.GenerateKnowledge(context.Background(), []Message{{Role: "user", Content: "a"}})
	r.GenerateEmpathy(context.Background(), []Message{{Role: "user", Content: "b"}})
	r.GenerateEmpathy(context.Background(), []Message{{Role: "user", Content: "c"}})

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.KnowledgeCalls)
	assert.Equal(t, int64(2), stats.EmpathyCalls)
	assert.Equal(t, int64(0), stats.KnowledgeFallbacks)
	assert.Equal(t, int64(2), stats.EmpathyFallbacks)
}

func TestOpenAIClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" Je vous entends. "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	text, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "bonjour"}}, 0.6, 300)
	require.NoError(t, err)
	assert.Equal(t, "Je vous entends.", text)
}

func TestAnthropicClientFoldsSystemMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Je suis là."}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-sonnet-4-20250514"})
	text, err := c.Generate(context.Background(), []Message{
		{Role: "system", Content: "Tu es un accompagnant."},
		{Role: "user", Content: "bonjour"},
	}, 0.6, 300)
	require.NoError(t, err)
	assert.Equal(t, "Je suis là.", text)
}

func TestProvidersRequireAPIKey(t *testing.T) {
	openai := NewOpenAIClient(OpenAIConfig{})
	_, err := openai.Generate(context.Background(), nil, 0.2, 100)
	assert.Error(t, err)

	anthropic := NewAnthropicClient(AnthropicConfig{})
	_, err = anthropic.Generate(context.Background(), nil, 0.2, 100)
	assert.Error(t, err)
}

func TestNewProviderFactory(t *testing.T) {
	t.Run("empty kind yields nil provider", func(t *testing.T) {
		p, err := NewProvider(context.Background(), ProviderConfig{})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("missing key yields nil provider", func(t *testing.T) {
		p, err := NewProvider(context.Background(), ProviderConfig{Kind: "openai"})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("unknown kind errors", func(t *testing.T) {
		_, err := NewProvider(context.Background(), ProviderConfig{Kind: "llama-local", APIKey: "x"})
		assert.Error(t, err)
	})

	t.Run("openai kind builds client", func(t *testing.T) {
		p, err := NewProvider(context.Background(), ProviderConfig{Kind: "openai", APIKey: "x"})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "openai", p.Name())
	})
}
