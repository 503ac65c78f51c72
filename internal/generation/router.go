package generation

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"solace/internal/logging"
)

// Per-role generation parameters: the knowledge provider synthesizes
// clinical plans at low temperature, the empathy provider phrases the
// delivered text.
const (
	knowledgeTemperature = 0.2
	knowledgeMaxTokens   = 600
	empathyTemperature   = 0.6
	empathyMaxTokens     = 300

	maxRetries  = 3
	backoffBase = 500 * time.Millisecond
)

// emptyFallback is delivered when there is no user text to echo.
const emptyFallback = "Je suis là, avec vous."

// RouterStats is a snapshot of router activity.
type RouterStats struct {
	KnowledgeCalls     int64
	EmpathyCalls       int64
	KnowledgeFallbacks int64
	EmpathyFallbacks   int64
}

// Router fronts the two providers with retry and fallback. A nil provider
// degrades immediately to the fallback.
type Router struct {
	knowledge Provider
	empathy   Provider
	sleep     func(time.Duration)

	knowledgeCalls     atomic.Int64
	empathyCalls       atomic.Int64
	knowledgeFallbacks atomic.Int64
	empathyFallbacks   atomic.Int64
}

// NewRouter creates a router. Either provider may be nil.
func NewRouter(knowledge, empathy Provider) *Router {
	return &Router{knowledge: knowledge, empathy: empathy, sleep: time.Sleep}
}

// GenerateKnowledge produces a clinical plan. On provider exhaustion the
// result carries a "[PLAN]"-prefixed echo of the last user message and
// the provider's last error.
func (r *Router) GenerateKnowledge(ctx context.Context, messages []Message) Result {
	r.knowledgeCalls.Inc()
	res := r.generate(ctx, r.knowledge, messages, knowledgeTemperature, knowledgeMaxTokens)
	if res.Source == SourceFallback {
		r.knowledgeFallbacks.Inc()
		res.Text = "[PLAN] " + truncate(lastUserContent(messages), 300)
	}
	return res
}

// GenerateEmpathy produces the user-facing phrasing. On provider
// exhaustion the result echoes the last user message, truncated.
func (r *Router) GenerateEmpathy(ctx context.Context, messages []Message) Result {
	r.empathyCalls.Inc()
	res := r.generate(ctx, r.empathy, messages, empathyTemperature, empathyMaxTokens)
	if res.Source == SourceFallback {
		r.empathyFallbacks.Inc()
		res.Text = truncate(lastUserContent(messages), 320)
		if res.Text == "" {
			res.Text = emptyFallback
		}
	}
	return res
}

// generate runs the retry loop: up to maxRetries attempts with
// exponential backoff, base 0.5s doubling.
func (r *Router) generate(ctx context.Context, provider Provider, messages []Message, temperature float64, maxTokens int) Result {
	if provider == nil {
		return Result{Source: SourceFallback}
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{Source: SourceFallback, Provider: provider.Name(), Err: ctx.Err()}
			default:
			}
			r.sleep(backoffBase << (attempt - 1))
		}

		text, err := provider.Generate(ctx, messages, temperature, maxTokens)
		if err == nil {
			return Result{Text: text, Source: SourceProvider, Provider: provider.Name()}
		}
		lastErr = err
		logging.GenerationWarn("provider %s attempt %d/%d failed: %v", provider.Name(), attempt+1, maxRetries, err)
	}

	logging.Generation("provider %s exhausted retries, using fallback", provider.Name())
	return Result{Source: SourceFallback, Provider: provider.Name(), Err: lastErr}
}

// Stats returns a snapshot of call and fallback counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		KnowledgeCalls:     r.knowledgeCalls.Load(),
		EmpathyCalls:       r.empathyCalls.Load(),
		KnowledgeFallbacks: r.knowledgeFallbacks.Load(),
		EmpathyFallbacks:   r.empathyFallbacks.Load(),
	}
}
