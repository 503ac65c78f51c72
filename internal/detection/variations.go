package detection

import (
	"strings"

	"solace/internal/therapy"
)

// Variation names must match the protocol catalog entries.

func somaticVariation(state therapy.UserState, arousal float64) string {
	switch {
	case state.Distress > 75 || arousal > 0.8:
		return "gentle"
	case state.Distress < 50 && arousal < 0.6:
		return "focused"
	default:
		return "standard"
	}
}

func acceptanceVariation(fusion, avoidance, values float64) string {
	switch {
	case fusion > 0.6:
		return "defusion_cognitive"
	case values > 0.5:
		return "valeurs_et_action"
	case avoidance > 0.5:
		return "acceptation_experiencielle"
	default:
		return "defusion_cognitive"
	}
}

func writingVariation(unsaid float64, state therapy.UserState) string {
	switch {
	case unsaid > 0.5:
		return "lettre_non_envoyee"
	case state.NarrativeCoherence < 0.4:
		return "journal_guide_recit"
	default:
		return "gratitude_post_traumatique"
	}
}

func bondsVariation(profile therapy.Profile) string {
	switch {
	case profile.RitualAffinity > 0.5:
		return "rituel_connexion"
	case profile.InternalDialogueCapacity > 0.5:
		return "conversation_interieure"
	default:
		return "objet_transitionnel"
	}
}

// SelectVariation picks the protocol variation for the gate-based methods.
// The detector-based methods carry their variation on the Signal.
func SelectVariation(method therapy.Method, message string, state therapy.UserState) string {
	switch method {
	case therapy.MethodMeaningMaking:
		return meaningVariation(state)
	case therapy.MethodNarrative:
		return narrativeVariation(message)
	case therapy.MethodPhysioRegulation:
		return physioVariation(state)
	case therapy.MethodMindfulness:
		return mindfulnessVariation(state)
	default:
		return "standard"
	}
}

func meaningVariation(state therapy.UserState) string {
	switch {
	case state.CognitiveLoops > 0.7:
		return "dereflexion"
	case state.Distress > 70:
		return "sens_dans_souffrance"
	default:
		return "exploration_sens"
	}
}

var identityFusionPhrases = []string{"je suis", "je ne suis plus", "je ne suis que"}

func narrativeVariation(message string) string {
	lower := strings.ToLower(message)
	for _, phrase := range identityFusionPhrases {
		if strings.Contains(lower, phrase) {
			return "externalisation"
		}
	}
	return "reconstruction_temporelle"
}

func physioVariation(state therapy.UserState) string {
	switch {
	case state.Arousal < 0.2 || state.EmotionalNumbness > 0.7:
		return "mobilisation_douce"
	case state.Loneliness > 0.7:
		return "co_regulation"
	default:
		return "regulation_ventrale"
	}
}

func mindfulnessVariation(state therapy.UserState) string {
	if state.BodyAwareness > 0.6 {
		return "body_scan_grief"
	}
	return "ancrage_souffle"
}
