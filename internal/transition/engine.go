// Package transition decides whether a completing method should hand off
// to another one. The engine is stateless: every recommendation is derived
// from the final user response and the current state, keyed by the method
// that is finishing.
package transition

import (
	"strings"

	"solace/internal/logging"
	"solace/internal/therapy"
)

// Signal names derived from the final response and state.
const (
	SignalMeaningEmerging       = "meaning_emerging"
	SignalNeedForExpression     = "need_for_expression"
	SignalSomaticIntegration    = "somatic_integration_achieved"
	SignalEmotionalOverwhelm    = "emotional_overwhelm"
	SignalDissociationIncrease  = "dissociation_increasing"
	SignalMentalLoops           = "mental_loops"
	SignalNeedGrounding         = "need_grounding"
	SignalNarrativeReconstruct  = "narrative_reconstruction"
)

// Recommendation is a proposed handoff from one method to another.
type Recommendation struct {
	From       therapy.Method
	To         therapy.Method
	Confidence float64
	Reason     string
	Signals    []string
}

// rule is one ordered destination rule of a source method. Signals must
// all be present; Extra, when set, is an additional state predicate.
type rule struct {
	signals    []string
	extra      func(state therapy.UserState, tctx therapy.Context) bool
	to         therapy.Method
	confidence float64
	reason     string
	safety     bool
}

// Engine evaluates the per-method transition rule tables.
type Engine struct{}

// NewEngine creates a transition engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Recommend returns the strongest applicable handoff for a completing
// method, or false when the session should simply close. Safety-motivated
// rules are evaluated first and cannot be pre-empted by progress rules.
func (e *Engine) Recommend(
	from therapy.Method,
	finalResponse string,
	state therapy.UserState,
	tctx therapy.Context,
) (Recommendation, bool) {
	table, ok := rules[from]
	if !ok {
		return Recommendation{}, false
	}

	active := computeSignals(finalResponse, state, tctx)

	best, found := pickBest(table, active, state, tctx, true)
	if !found {
		best, found = pickBest(table, active, state, tctx, false)
	}
	if !found {
		return Recommendation{}, false
	}

	rec := Recommendation{
		From:       from,
		To:         best.to,
		Confidence: best.confidence,
		Reason:     best.reason,
		Signals:    activeNames(active),
	}
	logging.Transition("recommend %s -> %s confidence=%.2f reason=%s", rec.From, rec.To, rec.Confidence, rec.Reason)
	return rec, true
}

func pickBest(table []rule, active map[string]bool, state therapy.UserState, tctx therapy.Context, safetyOnly bool) (rule, bool) {
	var best rule
	var found bool
	for _, r := range table {
		if r.safety != safetyOnly {
			continue
		}
		if !applies(r, active, state, tctx) {
			continue
		}
		if !found || r.confidence > best.confidence {
			best = r
			found = true
		}
	}
	return best, found
}

func applies(r rule, active map[string]bool, state therapy.UserState, tctx therapy.Context) bool {
	for _, sig := range r.signals {
		if !active[sig] {
			return false
		}
	}
	if r.extra != nil && !r.extra(state, tctx) {
		return false
	}
	return true
}

var rules = map[therapy.Method][]rule{
	therapy.MethodSomaticRegulation: {
		{
			signals:    []string{SignalEmotionalOverwhelm},
			to:         therapy.MethodPhysioRegulation,
			confidence: 0.90,
			reason:     "Submersion émotionnelle pendant le travail corporel",
			safety:     true,
		},
		{
			signals:    []string{SignalDissociationIncrease},
			to:         therapy.MethodPhysioRegulation,
			confidence: 0.90,
			reason:     "Dissociation en augmentation pendant le travail corporel",
			safety:     true,
		},
		{
			signals:    []string{SignalMeaningEmerging, SignalSomaticIntegration},
			to:         therapy.MethodMeaningMaking,
			confidence: 0.85,
			reason:     "Questions de sens émergentes après intégration somatique",
		},
		{
			signals: []string{SignalNeedForExpression},
			extra: func(state therapy.UserState, _ therapy.Context) bool {
				return state.Distress < 60
			},
			to:         therapy.MethodNarrative,
			confidence: 0.80,
			reason:     "Besoin d'expression avec détresse contenue",
		},
		{
			signals:    []string{SignalSomaticIntegration},
			to:         therapy.MethodPhysioRegulation,
			confidence: 0.75,
			reason:     "Consolider l'apaisement par la régulation physiologique",
		},
	},
	therapy.MethodEmpathicValidation: {
		{
			signals: nil,
			extra: func(state therapy.UserState, _ therapy.Context) bool {
				return state.BodyAwareness > 0.4 && state.Dissociation <= 0.6
			},
			to:         therapy.MethodSomaticRegulation,
			confidence: 0.80,
			reason:     "Conscience corporelle disponible pour un travail somatique",
		},
		{
			signals:    []string{SignalMeaningEmerging},
			to:         therapy.MethodMeaningMaking,
			confidence: 0.75,
			reason:     "Questions de sens après validation",
		},
		{
			signals:    []string{SignalNeedForExpression},
			to:         therapy.MethodNarrative,
			confidence: 0.70,
			reason:     "Besoin de raconter après validation",
		},
	},
	therapy.MethodMeaningMaking: {
		{
			signals:    []string{SignalNarrativeReconstruct},
			to:         therapy.MethodNarrative,
			confidence: 0.85,
			reason:     "Reconstruction narrative amorcée",
		},
		{
			signals: nil,
			extra: func(state therapy.UserState, _ therapy.Context) bool {
				return state.Distress > 70 && state.BodyAwareness > 0.5
			},
			to:         therapy.MethodSomaticRegulation,
			confidence: 0.75,
			reason:     "Détresse élevée avec accès corporel préservé",
		},
	},
	therapy.MethodNarrative: {
		{
			signals:    []string{SignalEmotionalOverwhelm},
			to:         therapy.MethodPhysioRegulation,
			confidence: 0.90,
			reason:     "Submersion pendant le récit",
			safety:     true,
		},
		{
			signals: nil,
			extra: func(state therapy.UserState, _ therapy.Context) bool {
				return state.Distress > 75 && state.BodyAwareness > 0.4
			},
			to:         therapy.MethodSomaticRegulation,
			confidence: 0.85,
			reason:     "Le récit ravive la détresse, retour au corps",
		},
		{
			signals:    []string{SignalMeaningEmerging},
			to:         therapy.MethodMeaningMaking,
			confidence: 0.80,
			reason:     "Le récit ouvre des questions de sens",
		},
	},
}

// computeSignals derives the transition signal vector. Lexical checks run
// on the lowercased response.
func computeSignals(response string, state therapy.UserState, tctx therapy.Context) map[string]bool {
	lower := strings.ToLower(response)

	return map[string]bool{
		SignalMeaningEmerging: containsAny(lower,
			"pourquoi", "sens", "raison", "comprendre", "signifie"),
		SignalNeedForExpression: containsAny(lower,
			"raconter", "dire", "parler", "exprimer", "partager") ||
			len([]rune(response)) > 200,
		SignalSomaticIntegration: state.Distress < 50 && state.SomaticClarity > 0.6,
		SignalEmotionalOverwhelm: state.Distress > 85 ||
			containsAny(lower, "trop", "submergé", "débordé"),
		SignalDissociationIncrease: state.Dissociation > 0.6 ||
			containsAny(lower, "vide", "rien", "engourdi", "absent"),
		SignalMentalLoops:  state.CognitiveLoops > 0.7 || tctx.RepetitionCount > 2,
		SignalNeedGrounding: state.Arousal > 0.8 ||
			containsAny(lower, "perdu", "flotte", "déconnecté"),
		SignalNarrativeReconstruct: containsAny(lower,
			"avant", "maintenant", "futur", "histoire", "vie"),
	}
}

func activeNames(active map[string]bool) []string {
	ordered := []string{
		SignalMeaningEmerging,
		SignalNeedForExpression,
		SignalSomaticIntegration,
		SignalEmotionalOverwhelm,
		SignalDissociationIncrease,
		SignalMentalLoops,
		SignalNeedGrounding,
		SignalNarrativeReconstruct,
	}
	var names []string
	for _, name := range ordered {
		if active[name] {
			names = append(names, name)
		}
	}
	return names
}

func containsAny(lower string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
