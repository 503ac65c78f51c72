// Package detection scores which therapeutic methods fit the current turn.
// Four methods get multi-signal detectors combining linguistic construct
// scores, the emotion reading and the user state; the remaining methods use
// simpler activation gates. Detection proposes, screening disposes: a
// signal here is a candidate, not an authorization.
package detection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"solace/internal/emotion"
	"solace/internal/logging"
	"solace/internal/therapy"
)

// Signal is a detection result for one method.
type Signal struct {
	Method            therapy.Method
	Confidence        float64 // 0-1
	Indicators        []string
	Contraindications []string
	Variation         string
}

// Weights are the evidence-based confidence contributions per detector.
// The defaults come from the clinical literature review behind each
// detector; treat changes as a clinical decision, not a tuning knob.
type Weights struct {
	SomaticActivation    float64
	SomaticArousal       float64
	SomaticInteroception float64

	AcceptanceFusion    float64
	AcceptanceAvoidance float64
	AcceptanceValues    float64

	WritingUnsaid  float64
	WritingArousal float64

	BondsConnection float64
}

// DefaultWeights returns the published contribution weights.
func DefaultWeights() Weights {
	return Weights{
		SomaticActivation:    0.4,
		SomaticArousal:       0.3,
		SomaticInteroception: 0.2,
		AcceptanceFusion:     0.4,
		AcceptanceAvoidance:  0.3,
		AcceptanceValues:     0.2,
		WritingUnsaid:        0.4,
		WritingArousal:       0.3,
		BondsConnection:      0.5,
	}
}

// Config configures an Engine.
type Config struct {
	// Analyzer may be nil; detection then estimates the reading from the
	// self-reported scores.
	Analyzer emotion.Analyzer
	// Scorer defaults to the built-in regex scorer.
	Scorer ConstructScorer
	// Weights defaults to DefaultWeights when zero.
	Weights Weights
}

// Engine detects candidate therapeutic methods for a turn.
type Engine struct {
	analyzer emotion.Analyzer
	scorer   ConstructScorer
	deficit  func(message string) float64
	weights  Weights
}

// NewEngine creates a detection engine.
func NewEngine(cfg Config) *Engine {
	scorer := cfg.Scorer
	deficit := func(string) float64 { return 0 }
	if scorer == nil {
		rs := NewRegexScorer()
		scorer = rs
		deficit = rs.MetacognitionDeficit
	} else if rs, ok := scorer.(*RegexScorer); ok {
		deficit = rs.MetacognitionDeficit
	}
	weights := cfg.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Engine{
		analyzer: cfg.Analyzer,
		scorer:   scorer,
		deficit:  deficit,
		weights:  weights,
	}
}

// DetectCandidates analyzes the message and returns every method whose
// detector fires, sorted by confidence, highest first. Order is stable for
// equal confidences.
func (e *Engine) DetectCandidates(
	ctx context.Context,
	message string,
	state therapy.UserState,
	profile therapy.Profile,
	history []therapy.Turn,
	tctx therapy.Context,
) []Signal {
	analysis := emotion.AnalyzeOrEstimate(ctx, e.analyzer, message, state.Distress, state.Hope, state.Energy)
	return e.DetectWith(analysis, message, state, profile, history, tctx)
}

// DetectWith runs detection against an already-obtained emotion analysis,
// so a caller that needs the analysis elsewhere pays for it once.
func (e *Engine) DetectWith(
	analysis emotion.Analysis,
	message string,
	state therapy.UserState,
	profile therapy.Profile,
	history []therapy.Turn,
	tctx therapy.Context,
) []Signal {
	constructs := e.scorer.Score(message)
	ling := linguistic{
		constructs: constructs,
		rigidity:   Rigidity(history),
		deficit:    e.deficit(message),
	}

	var signals []Signal
	if s := e.detectSomatic(analysis, ling, state); s != nil {
		signals = append(signals, *s)
	}
	if s := e.detectAcceptance(analysis, ling, state, tctx); s != nil {
		signals = append(signals, *s)
	}
	if s := e.detectExpressiveWriting(analysis, ling, state); s != nil {
		signals = append(signals, *s)
	}
	if s := e.detectContinuingBonds(ling, state, profile); s != nil {
		signals = append(signals, *s)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})

	for _, s := range signals {
		logging.Detection("candidate method=%s confidence=%.2f variation=%s", s.Method, s.Confidence, s.Variation)
	}
	return signals
}

type linguistic struct {
	constructs map[Construct]float64
	rigidity   float64
	deficit    float64
}

// detectSomatic gates somatic regulation on an identifiable somatic
// activation, sufficient interoceptive awareness, optimal arousal and the
// absence of active dissociation.
func (e *Engine) detectSomatic(analysis emotion.Analysis, ling linguistic, state therapy.UserState) *Signal {
	var indicators, contraindications []string
	confidence := 0.0

	// One matching pattern family is already a clear somatic marker.
	somatic := ling.constructs[ConstructSomaticActivation]
	if somatic > 0.2 {
		indicators = append(indicators, fmt.Sprintf("somatic activation detected (score: %.2f)", somatic))
		confidence += e.weights.SomaticActivation
	}

	arousal := analysis.Arousal
	switch {
	case arousal >= 0.6 && arousal <= 0.9:
		indicators = append(indicators, fmt.Sprintf("arousal in optimal regulation zone (%.2f)", arousal))
		confidence += e.weights.SomaticArousal
	case arousal > 0.9:
		contraindications = append(contraindications, "arousal too high, flooding risk")
		confidence -= 0.3
	}

	if state.InteroceptiveAwareness > 0.4 {
		indicators = append(indicators, fmt.Sprintf("sufficient interoceptive awareness (%.2f)", state.InteroceptiveAwareness))
		confidence += e.weights.SomaticInteroception
	} else {
		contraindications = append(contraindications, "insufficient interoceptive awareness")
		confidence -= 0.2
	}

	if state.Dissociation > 0.7 {
		return nil
	}
	if state.Dissociation > 0.4 {
		contraindications = append(contraindications, "moderate dissociation, caution required")
		confidence -= 0.1
	}

	if confidence < 0.3 {
		return nil
	}
	return &Signal{
		Method:            therapy.MethodSomaticRegulation,
		Confidence:        math.Min(1, confidence),
		Indicators:        indicators,
		Contraindications: contraindications,
		Variation:         somaticVariation(state, arousal),
	}
}

// detectAcceptance gates acceptance work on cognitive fusion, experiential
// avoidance or active values seeking, with mentalization capacity as the
// hard requirement for metacognitive work.
func (e *Engine) detectAcceptance(analysis emotion.Analysis, ling linguistic, state therapy.UserState, tctx therapy.Context) *Signal {
	var indicators, contraindications []string
	confidence := 0.0

	fusionScore := ling.constructs[ConstructCognitiveFusion]*0.3 +
		analysis.CognitiveFusion*0.4 +
		ling.deficit*0.2 +
		ling.rigidity*0.1
	if fusionScore > 0.5 {
		indicators = append(indicators, fmt.Sprintf("cognitive fusion detected (score: %.2f)", fusionScore))
		confidence += e.weights.AcceptanceFusion
	}

	avoidanceScore := (ling.constructs[ConstructExperientialAvoidance] + analysis.ExperientialAvoidance) / 2
	if avoidanceScore > 0.4 {
		indicators = append(indicators, fmt.Sprintf("experiential avoidance (score: %.2f)", avoidanceScore))
		confidence += e.weights.AcceptanceAvoidance
	}

	values := ling.constructs[ConstructValuesSeeking]
	if values > 0.3 {
		indicators = append(indicators, fmt.Sprintf("values seeking (score: %.2f)", values))
		confidence += e.weights.AcceptanceValues
	}

	if analysis.Mentalization < 0.3 {
		return nil
	}
	if analysis.Mentalization < 0.5 {
		contraindications = append(contraindications, "limited mentalization, reduce complexity")
		confidence -= 0.1
	}

	if state.Distress > 85 {
		return nil
	}
	if state.Distress > 75 {
		contraindications = append(contraindications, "elevated distress, simplify exercises")
		confidence -= 0.1
	}

	if tctx.Alliance < 0.6 {
		contraindications = append(contraindications, "therapeutic alliance not yet established")
		confidence -= 0.2
	}

	if confidence < 0.3 {
		return nil
	}
	return &Signal{
		Method:            therapy.MethodAcceptance,
		Confidence:        math.Min(1, confidence),
		Indicators:        indicators,
		Contraindications: contraindications,
		Variation:         acceptanceVariation(fusionScore, avoidanceScore, values),
	}
}

// detectExpressiveWriting gates expressive writing on unsaid content with
// arousal in the productive band. Above the band the exercise risks
// re-traumatization, below it the benefit is marginal.
func (e *Engine) detectExpressiveWriting(analysis emotion.Analysis, ling linguistic, state therapy.UserState) *Signal {
	var indicators, contraindications []string
	confidence := 0.0

	unsaid := ling.constructs[ConstructUnsaidExpression]
	if unsaid > 0.3 {
		indicators = append(indicators, fmt.Sprintf("unsaid content to express (score: %.2f)", unsaid))
		confidence += e.weights.WritingUnsaid
	}

	arousal := analysis.Arousal
	switch {
	case arousal >= 0.4 && arousal <= 0.8:
		indicators = append(indicators, fmt.Sprintf("arousal optimal for expressive writing (%.2f)", arousal))
		confidence += e.weights.WritingArousal
	case arousal < 0.4:
		contraindications = append(contraindications, "arousal too low, limited therapeutic benefit")
		confidence -= 0.2
	default:
		return nil
	}

	if analysis.CognitiveProcessing < 0.3 {
		return nil
	}

	if analysis.Rumination > 0.8 {
		contraindications = append(contraindications, "severe rumination, writing may amplify it")
		confidence -= 0.3
	}

	if state.SocialIsolation > 0.7 {
		contraindications = append(contraindications, "social isolation, writing must not substitute for relationships")
		confidence -= 0.2
	}

	if confidence < 0.2 {
		return nil
	}
	return &Signal{
		Method:            therapy.MethodExpressiveWriting,
		Confidence:        math.Min(1, confidence),
		Indicators:        indicators,
		Contraindications: contraindications,
		Variation:         writingVariation(unsaid, state),
	}
}

// detectContinuingBonds gates bond work on active connection seeking.
// Complicated grief is an absolute disqualifier (fixation risk).
func (e *Engine) detectContinuingBonds(ling linguistic, state therapy.UserState, profile therapy.Profile) *Signal {
	var indicators, contraindications []string
	confidence := 0.0

	connection := ling.constructs[ConstructConnectionSeeking]
	if connection > 0.3 {
		indicators = append(indicators, fmt.Sprintf("connection seeking (score: %.2f)", connection))
		confidence += e.weights.BondsConnection
	}

	if state.ComplicatedGrief {
		return nil
	}

	if state.GriefAvoidance > 0.8 {
		contraindications = append(contraindications, "excessive grief avoidance, confrontation work first")
		confidence -= 0.3
	}

	if state.GriefPhase == "acute" || state.GriefPhase == "early" {
		contraindications = append(contraindications, "acute grief phase, stabilization first")
		confidence -= 0.2
	}

	if confidence < 0.2 {
		return nil
	}
	return &Signal{
		Method:            therapy.MethodContinuingBonds,
		Confidence:        math.Min(1, confidence),
		Indicators:        indicators,
		Contraindications: contraindications,
		Variation:         bondsVariation(profile),
	}
}

// ShouldActivate is the lightweight activation check for a single method,
// used by callers that already chose a method and only need a yes/no.
func (e *Engine) ShouldActivate(
	ctx context.Context,
	method therapy.Method,
	message string,
	state therapy.UserState,
	profile therapy.Profile,
	history []therapy.Turn,
	tctx therapy.Context,
) bool {
	switch method {
	case therapy.MethodMeaningMaking:
		return shouldActivateMeaning(message, state)
	case therapy.MethodNarrative:
		return shouldActivateNarrative(message, state)
	case therapy.MethodPhysioRegulation:
		return shouldActivatePhysio(state)
	case therapy.MethodMindfulness:
		return shouldActivateMindfulness(state)
	case therapy.MethodEmpathicValidation:
		return true
	default:
		signals := e.DetectCandidates(ctx, message, state, profile, history, tctx)
		for _, s := range signals {
			if s.Method == method {
				return true
			}
		}
		return false
	}
}

var meaningWords = []string{"pourquoi", "sens", "raison", "comprendre", "signifie", "absurde"}

func shouldActivateMeaning(message string, state therapy.UserState) bool {
	return state.Distress < 90 &&
		state.Dissociation < 0.7 &&
		containsAny(message, meaningWords)
}

var narrativeWords = []string{"raconter", "histoire", "avant", "maintenant", "futur", "vie"}

func shouldActivateNarrative(message string, state therapy.UserState) bool {
	expressive := containsAny(message, narrativeWords) || utf8.RuneCountInString(message) > 150
	return state.Distress < 85 && state.Dissociation < 0.7 && expressive
}

func shouldActivatePhysio(state therapy.UserState) bool {
	hyper := state.Arousal > 0.8 || state.Distress > 85
	hypo := state.Arousal < 0.2 || state.EmotionalNumbness > 0.7
	return hyper || hypo
}

func shouldActivateMindfulness(state therapy.UserState) bool {
	return state.Distress < 80 && state.Dissociation < 0.7 && state.CognitiveLoops > 0.4
}

func containsAny(message string, words []string) bool {
	lower := strings.ToLower(message)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
