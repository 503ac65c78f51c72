// Package screening performs the evidence-based safety check that stands
// between method detection and session start. Screening is pure: the same
// state always yields the same verdict, and nothing here mutates its
// inputs or keeps state between calls.
package screening

import (
	"fmt"
	"math"

	"solace/internal/emotion"
	"solace/internal/logging"
	"solace/internal/therapy"
)

// RiskLevel classifies the screening verdict.
type RiskLevel string

const (
	RiskSafe            RiskLevel = "safe"
	RiskCaution         RiskLevel = "caution"
	RiskContraindicated RiskLevel = "contraindicated"
)

// Result is the screening verdict for one method.
type Result struct {
	Approved        bool
	RiskLevel       RiskLevel
	RiskFactors     []string
	Recommendations []string
	Alternatives    []therapy.Method
}

// Engine evaluates the contraindication and prerequisite tables.
type Engine struct{}

// NewEngine creates a screening engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Screen runs the full clinical screening for a method. Methods without a
// rule table (the low-intensity ones) are approved as-is.
func (e *Engine) Screen(
	method therapy.Method,
	state therapy.UserState,
	profile therapy.Profile,
	analysis emotion.Analysis,
	tctx therapy.Context,
) Result {
	enriched := enrich(state, profile, analysis, tctx)

	if absolute := checkRules(contraindications[method].Absolute, enriched, true); len(absolute) > 0 {
		logging.Audit("screening_refused",
			"method", string(method),
			"risk_level", string(RiskContraindicated),
			"factors", absolute,
		)
		return Result{
			Approved:        false,
			RiskLevel:       RiskContraindicated,
			RiskFactors:     absolute,
			Recommendations: safetyRecommendations(),
			Alternatives:    suggestAlternatives(enriched),
		}
	}

	relative := checkRules(contraindications[method].Relative, enriched, false)
	missing := checkPrerequisites(prerequisites[method], enriched)
	if len(relative) > 0 || len(missing) > 0 {
		factors := append(append([]string{}, relative...), missing...)
		logging.Audit("screening_refused",
			"method", string(method),
			"risk_level", string(RiskCaution),
			"factors", factors,
		)
		return Result{
			Approved:        false,
			RiskLevel:       RiskCaution,
			RiskFactors:     factors,
			Recommendations: cautionRecommendations(method, relative, missing),
			Alternatives:    suggestAlternatives(enriched),
		}
	}

	recs := bestPractices[method]
	if len(recs) == 0 {
		recs = []string{"Méthode appropriée"}
	}
	logging.Screening("approved method=%s", method)
	return Result{
		Approved:        true,
		RiskLevel:       RiskSafe,
		Recommendations: recs,
	}
}

// enrichedState is the explicit record the rule tables evaluate against.
// Booleans are projected to 0/1 so every rule compares floats.
type enrichedState struct {
	Detresse               float64
	Dissociation           float64
	DissociationActive     float64
	PsychoticSymptoms      float64
	TraumaComplexUntreated float64
	ComplicatedGrief       float64
	GriefAvoidance         float64
	GriefAcceptance        float64
	SocialIsolation        float64

	EmotionalArousal  float64
	EmotionalFlooding float64
	Rumination        float64

	TherapeuticAlliance float64
	SafetyPerceived     float64

	MentalizationCapacity  float64
	CognitiveResources     float64
	InteroceptiveAwareness float64
	CognitiveProcessing    float64
}

func (s enrichedState) value(condition string) (float64, bool) {
	switch condition {
	case "detresse":
		return s.Detresse, true
	case "dissociation":
		return s.Dissociation, true
	case "dissociation_active":
		return s.DissociationActive, true
	case "psychotic_symptoms":
		return s.PsychoticSymptoms, true
	case "trauma_complex_untreated":
		return s.TraumaComplexUntreated, true
	case "complicated_grief":
		return s.ComplicatedGrief, true
	case "grief_avoidance":
		return s.GriefAvoidance, true
	case "grief_acceptance":
		return s.GriefAcceptance, true
	case "social_isolation":
		return s.SocialIsolation, true
	case "emotional_arousal":
		return s.EmotionalArousal, true
	case "emotional_flooding":
		return s.EmotionalFlooding, true
	case "rumination":
		return s.Rumination, true
	case "therapeutic_alliance":
		return s.TherapeuticAlliance, true
	case "safety_perceived":
		return s.SafetyPerceived, true
	case "mentalization_capacity":
		return s.MentalizationCapacity, true
	case "cognitive_resources":
		return s.CognitiveResources, true
	case "interoceptive_awareness":
		return s.InteroceptiveAwareness, true
	case "cognitive_processing":
		return s.CognitiveProcessing, true
	default:
		return 0, false
	}
}

// enrich merges the typed user state, profile, emotion reading and
// therapeutic context into the record the tables evaluate.
func enrich(state therapy.UserState, profile therapy.Profile, analysis emotion.Analysis, tctx therapy.Context) enrichedState {
	mentalization := state.MentalizationCapacity
	if mentalization == 0 {
		mentalization = estimateMentalization(analysis, tctx)
	}

	return enrichedState{
		Detresse:               state.Distress,
		Dissociation:           state.Dissociation,
		DissociationActive:     boolToFloat(state.Dissociation > 0.7),
		PsychoticSymptoms:      boolToFloat(profile.PsychoticSymptoms),
		TraumaComplexUntreated: boolToFloat(profile.UntreatedComplexTrauma),
		ComplicatedGrief:       boolToFloat(state.ComplicatedGrief),
		GriefAvoidance:         state.GriefAvoidance,
		GriefAcceptance:        state.GriefAcceptance,
		SocialIsolation:        state.SocialIsolation,

		EmotionalArousal:  analysis.Arousal,
		EmotionalFlooding: boolToFloat(analysis.Arousal > 0.85),
		Rumination:        analysis.Rumination,

		TherapeuticAlliance: tctx.Alliance,
		SafetyPerceived:     tctx.SafetyPerceived,

		MentalizationCapacity:  mentalization,
		CognitiveResources:     estimateCognitiveResources(state, analysis),
		InteroceptiveAwareness: estimateInteroception(state),
		CognitiveProcessing:    analysis.CognitiveProcessing,
	}
}

// estimateMentalization approximates reflective functioning from the
// available indicators when no assessed value exists.
func estimateMentalization(analysis emotion.Analysis, tctx therapy.Context) float64 {
	indicators := []float64{
		analysis.EmotionalAwareness,
		analysis.Mentalization,
		tctx.MetacognitiveMarkers,
	}
	var sum float64
	for _, v := range indicators {
		sum += v
	}
	return sum / float64(len(indicators))
}

// estimateCognitiveResources: available resources shrink with distress and
// arousal.
func estimateCognitiveResources(state therapy.UserState, analysis emotion.Analysis) float64 {
	return math.Max(0, 1-(state.Distress/100*0.6+analysis.Arousal*0.4))
}

// estimateInteroception averages reported body awareness with the somatic
// clarity reading (MAIA-style composite).
func estimateInteroception(state therapy.UserState) float64 {
	return (state.BodyAwareness + state.SomaticClarity) / 2
}

func checkRules(rules []Rule, state enrichedState, withSource bool) []string {
	var risks []string
	for _, rule := range rules {
		value, ok := state.value(rule.Condition)
		if !ok {
			continue
		}
		if evaluate(value, rule.Operator, rule.Threshold) {
			if withSource {
				risks = append(risks, fmt.Sprintf("%s: %s (Source: %s)", rule.Condition, rule.Reason, rule.Source))
			} else {
				risks = append(risks, fmt.Sprintf("%s: %s", rule.Condition, rule.Reason))
			}
		}
	}
	return risks
}

func checkPrerequisites(rules []Rule, state enrichedState) []string {
	var missing []string
	for _, rule := range rules {
		value, ok := state.value(rule.Condition)
		if !ok {
			missing = append(missing, fmt.Sprintf("Donnée manquante: %s", rule.Condition))
			continue
		}
		if !evaluate(value, rule.Operator, rule.Threshold) {
			missing = append(missing, fmt.Sprintf("Prérequis non rempli: %s %s %g (actuel: %.2f)",
				rule.Condition, rule.Operator, rule.Threshold, value))
		}
	}
	return missing
}

func safetyRecommendations() []string {
	return []string{
		"Méthode contre-indiquée pour raisons de sécurité clinique",
		"Recommandation: Stabilisation émotionnelle prioritaire",
		"Considérer: Régulation physiologique (respiration, ancrage sensoriel)",
		"Si détresse persistante: Orienter vers professionnel de santé mentale",
	}
}

func cautionRecommendations(method therapy.Method, relative, missing []string) []string {
	recs := []string{fmt.Sprintf("Précautions nécessaires pour %s", method)}
	if len(relative) > 0 {
		recs = append(recs, "Risques identifiés:")
		for _, r := range relative {
			recs = append(recs, "  - "+r)
		}
	}
	if len(missing) > 0 {
		recs = append(recs, "Prérequis manquants:")
		for _, m := range missing {
			recs = append(recs, "  - "+m)
		}
	}
	recs = append(recs, "Recommandation: Préparer le terrain avant d'activer cette méthode")
	return recs
}

// suggestAlternatives ranks safer methods by inverse severity of the
// refusing state.
func suggestAlternatives(state enrichedState) []therapy.Method {
	var alts []therapy.Method
	seen := make(map[therapy.Method]bool)
	add := func(m therapy.Method) {
		if !seen[m] {
			seen[m] = true
			alts = append(alts, m)
		}
	}

	if state.Detresse > 80 || state.EmotionalArousal > 0.85 {
		add(therapy.MethodPhysioRegulation)
	}
	if state.Dissociation > 0.6 {
		add(therapy.MethodMindfulness)
	}
	if state.CognitiveResources < 0.4 {
		add(therapy.MethodPhysioRegulation)
		add(therapy.MethodMindfulness)
	}
	if state.TherapeuticAlliance < 0.6 {
		add(therapy.MethodEmpathicValidation)
	}
	return alts
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
