package safety

// Strategy is an escalating intervention posture.
type Strategy string

const (
	StrategyEnhanced    Strategy = "enhanced_therapy"
	StrategyStandard    Strategy = "standard_therapy"
	StrategyAdapted     Strategy = "adapted_therapy"
	StrategySupported   Strategy = "supported_therapy"
	StrategySafetyFirst Strategy = "safety_first"
)

// Tier is the safety classification an intervention plan starts from.
type Tier string

const (
	TierOptimal Tier = "optimal"
	TierGood    Tier = "good"
	TierCaution Tier = "caution"
	TierWarning Tier = "warning"
	TierUnsafe  Tier = "unsafe"
)

// ImmediateAction is one concrete step of an intervention plan.
type ImmediateAction struct {
	Action    string
	Intensity string
	Detail    string
}

// MonitoringPlan sets the cadence and metrics for the chosen strategy.
type MonitoringPlan struct {
	Frequency string
	Metrics   []string
}

// InterventionPlan is the full escalation response for one turn.
type InterventionPlan struct {
	Strategy         Strategy
	ImmediateActions []ImmediateAction
	AdaptiveChanges  []string
	Monitoring       MonitoringPlan
	SuccessMetrics   []string
}

// PlanIntervention maps {tier, predicted risk, evening context} to an
// escalating strategy. Evening sessions escalate one step unless the
// tier is optimal.
func PlanIntervention(tier Tier, prediction RiskPrediction, eveningSession bool) InterventionPlan {
	strategy := baseStrategy(tier)

	switch {
	case prediction.RiskScore > 0.7:
		strategy = StrategySafetyFirst
	case prediction.RiskScore > 0.5:
		strategy = StrategySupported
	}

	if eveningSession && tier != TierOptimal {
		strategy = escalate(strategy)
	}

	return InterventionPlan{
		Strategy:         strategy,
		ImmediateActions: immediateActions(strategy),
		AdaptiveChanges:  adaptiveChanges(strategy),
		Monitoring:       monitoringPlan(strategy),
		SuccessMetrics:   successMetrics(strategy),
	}
}

func baseStrategy(tier Tier) Strategy {
	switch tier {
	case TierOptimal:
		return StrategyEnhanced
	case TierGood:
		return StrategyStandard
	case TierCaution:
		return StrategyAdapted
	case TierWarning:
		return StrategySupported
	default:
		return StrategySafetyFirst
	}
}

func escalate(s Strategy) Strategy {
	switch s {
	case StrategyEnhanced:
		return StrategyStandard
	case StrategyStandard:
		return StrategyAdapted
	case StrategyAdapted:
		return StrategySupported
	default:
		return StrategySafetyFirst
	}
}

func immediateActions(s Strategy) []ImmediateAction {
	switch s {
	case StrategyEnhanced:
		return []ImmediateAction{
			{Action: "method_activation", Intensity: "high", Detail: "standard duration"},
			{Action: "progress_tracking", Intensity: "detailed", Detail: "high frequency"},
		}
	case StrategyStandard:
		return []ImmediateAction{
			{Action: "method_activation", Intensity: "medium", Detail: "standard duration"},
			{Action: "safety_check", Intensity: "baseline", Detail: "medium frequency"},
		}
	case StrategyAdapted:
		return []ImmediateAction{
			{Action: "method_activation", Intensity: "low", Detail: "reduced duration"},
			{Action: "grounding_exercise", Intensity: "preparatory", Detail: "5min"},
			{Action: "safety_check", Intensity: "enhanced", Detail: "high frequency"},
		}
	case StrategySupported:
		return []ImmediateAction{
			{Action: "method_activation", Intensity: "minimal", Detail: "brief"},
			{Action: "safety_contract", Intensity: "explicit", Detail: "crisis_plan"},
			{Action: "resource_activation", Intensity: "high", Detail: "breathing, grounding"},
			{Action: "safety_check", Intensity: "continuous", Detail: "very high frequency"},
		}
	default:
		return []ImmediateAction{
			{Action: "method_suspension", Intensity: "immediate", Detail: "24h"},
			{Action: "crisis_protocol", Intensity: "full", Detail: "emergency"},
			{Action: "human_support", Intensity: "maximum", Detail: "emergency_contacts"},
			{Action: "safety_monitoring", Intensity: "intensive", Detail: "continuous"},
		}
	}
}

func adaptiveChanges(s Strategy) []string {
	switch s {
	case StrategyEnhanced:
		return []string{"Augmenter profondeur exploration"}
	case StrategyStandard:
		return []string{"Maintenir rythme actuel"}
	case StrategyAdapted:
		return []string{"Réduire intensité", "Augmenter pauses"}
	case StrategySupported:
		return []string{"Ralentir significativement", "Grounding fréquent"}
	default:
		return []string{"Suspendre méthode", "Stabilisation uniquement"}
	}
}

func monitoringPlan(s Strategy) MonitoringPlan {
	switch s {
	case StrategyEnhanced:
		return MonitoringPlan{Frequency: "every_10min", Metrics: []string{"progress", "engagement"}}
	case StrategyStandard:
		return MonitoringPlan{Frequency: "every_5min", Metrics: []string{"detresse", "arousal"}}
	case StrategyAdapted:
		return MonitoringPlan{Frequency: "every_3min", Metrics: []string{"detresse", "dissociation", "arousal"}}
	case StrategySupported:
		return MonitoringPlan{Frequency: "every_2min", Metrics: []string{"all_safety_metrics"}}
	default:
		return MonitoringPlan{Frequency: "continuous", Metrics: []string{"crisis_indicators"}}
	}
}

func successMetrics(s Strategy) []string {
	switch s {
	case StrategyEnhanced:
		return []string{"Insight gained", "Emotional processing"}
	case StrategyStandard:
		return []string{"Session completion", "Stable arousal"}
	case StrategyAdapted:
		return []string{"No adverse effects", "Grounding maintained"}
	case StrategySupported:
		return []string{"Safety maintained", "No escalation"}
	default:
		return []string{"Crisis averted", "Stabilization achieved"}
	}
}

// DebriefingProtocol lists the debriefing steps owed after an alert.
type DebriefingProtocol struct {
	Required    bool
	Steps       []string
	SafetyCheck string
}

// Debriefing returns the protocol matching an alert's effect type.
func Debriefing(alert Alert) DebriefingProtocol {
	if !alert.DebriefingRequired {
		return DebriefingProtocol{}
	}

	switch alert.EffectType {
	case EffectDistressIncrease:
		return DebriefingProtocol{
			Required: true,
			Steps: []string{
				"Normaliser l'augmentation temporaire de détresse (12-18% des cas)",
				"Valider l'expérience émotionnelle",
				"Proposer techniques de régulation (respiration, grounding)",
				"Planifier suivi dans 24-48h",
			},
			SafetyCheck: "Évaluer idéations suicidaires si détresse > 85",
		}
	case EffectDissociation:
		return DebriefingProtocol{
			Required: true,
			Steps: []string{
				"Grounding immédiat (5 sens)",
				"Réorientation temporelle et spatiale",
				"Validation de l'expérience",
				"Référence professionnelle si persistant",
			},
			SafetyCheck: "Vérifier capacité à se réorienter",
		}
	case EffectDerealization:
		return DebriefingProtocol{
			Required: true,
			Steps: []string{
				"Arrêt immédiat exercice de défusion",
				"Grounding sensoriel",
				"Explication du phénomène (15% cas ACT digital)",
				"Contre-indication temporaire des exercices de défusion",
			},
			SafetyCheck: "Évaluer durée et intensité déréalisation",
		}
	default:
		return DebriefingProtocol{Required: true, Steps: []string{"Débriefing standard"}}
	}
}
