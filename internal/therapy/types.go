// Package therapy holds the domain types shared across the orchestration
// pipeline: the method catalog, the typed user-state record, and the
// therapeutic context carried between turns.
package therapy

// Method identifies a therapeutic technique/protocol family.
type Method string

const (
	MethodSomaticRegulation  Method = "somatic_regulation"
	MethodAcceptance         Method = "acceptance_based"
	MethodExpressiveWriting  Method = "expressive_writing"
	MethodContinuingBonds    Method = "continuing_bonds"
	MethodMeaningMaking      Method = "meaning_making"
	MethodNarrative          Method = "narrative"
	MethodPhysioRegulation   Method = "physiological_regulation"
	MethodMindfulness        Method = "mindfulness"
	MethodEmpathicValidation Method = "empathic_validation"
)

// Methods returns every known method, in catalog order.
func Methods() []Method {
	return []Method{
		MethodSomaticRegulation,
		MethodAcceptance,
		MethodExpressiveWriting,
		MethodContinuingBonds,
		MethodMeaningMaking,
		MethodNarrative,
		MethodPhysioRegulation,
		MethodMindfulness,
		MethodEmpathicValidation,
	}
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	for _, known := range Methods() {
		if m == known {
			return true
		}
	}
	return false
}

// UserState is the typed per-turn snapshot of the user's clinical state.
//
// Every field has a documented default; use DefaultUserState to obtain a
// state with all defaults applied and overwrite only the fields the caller
// actually measured. Scalars in [0,1] unless noted otherwise.
type UserState struct {
	Distress float64 // 0-100, default 50
	Hope     float64 // 0-100, default 50
	Energy   float64 // 0-100, default 50

	Arousal        float64 // default 0.5
	Dissociation   float64 // default 0
	CognitiveLoops float64 // rumination proxy, default 0

	// MentalizationCapacity is an externally assessed reflective-functioning
	// score. Zero means not assessed; screening then estimates it from the
	// emotion reading.
	MentalizationCapacity float64

	BodyAwareness          float64 // default 0.5
	BodyAvoidance          float64 // default 0.5
	InteroceptiveAwareness float64 // default 0.5
	SomaticClarity         float64 // default 0.5
	ProcessSpeed           float64 // default 0.5
	EmotionalClarity       float64 // default 0.5
	EmotionalComplexity    float64 // default 0
	EmotionalNumbness      float64 // default 0

	Fatigue            float64 // default 0
	Loneliness         float64 // default 0
	SocialIsolation    float64 // default 0
	NarrativeCoherence float64 // default 0.5

	GriefAvoidance   float64 // default 0
	GriefAcceptance  float64 // default 0.5
	GriefPhase       string  // "", "acute", "early", "integrated"
	ComplicatedGrief bool

	// EmotionLocation is a previously-mentioned body location ("gorge",
	// "poitrine", ...) used for prompt placeholder substitution.
	EmotionLocation string
}

// DefaultUserState returns a UserState with the documented defaults.
func DefaultUserState() UserState {
	return UserState{
		Distress:               50,
		Hope:                   50,
		Energy:                 50,
		Arousal:                0.5,
		BodyAwareness:          0.5,
		BodyAvoidance:          0.5,
		InteroceptiveAwareness: 0.5,
		SomaticClarity:         0.5,
		ProcessSpeed:           0.5,
		EmotionalClarity:       0.5,
		NarrativeCoherence:     0.5,
		GriefAcceptance:        0.5,
	}
}

// Profile carries the slow-moving, per-user attributes that condition
// variation selection and screening, as opposed to the per-turn UserState.
type Profile struct {
	HighSensitivity          bool
	PsychoticSymptoms        bool
	UntreatedComplexTrauma   bool
	RitualAffinity           float64 // default 0
	InternalDialogueCapacity float64 // default 0
}

// Context is the therapeutic context accumulated across turns of one
// conversation.
type Context struct {
	Alliance        float64  // therapeutic alliance estimate, default 0.5
	SessionCount    int      // completed guided sessions so far
	PreviousMethods []Method // methods already used in this conversation
	SafetyPerceived float64  // default 0.7

	LastMessage          string
	RepetitionCount      int     // thematic repetitions detected upstream
	RecentTraumaHours    float64 // hours since a reported acute event; default 999
	EveningSession       bool
	MetacognitiveMarkers float64 // default 0
}

// DefaultContext returns a Context with the documented defaults.
func DefaultContext() Context {
	return Context{
		Alliance:          0.5,
		SafetyPerceived:   0.7,
		RecentTraumaHours: 999,
	}
}

// Turn is one conversation turn, used for discourse-rigidity analysis.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}
