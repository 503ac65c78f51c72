package screening

import "solace/internal/therapy"

// Rule is one evidence-based screening condition. Condition names refer to
// fields of the enriched state; boolean conditions are encoded as 0/1 with
// an equality threshold.
type Rule struct {
	Condition string
	Operator  string // ">", "<", ">=", "<=", "==", "!="
	Threshold float64
	Reason    string
	Source    string
}

type ruleSet struct {
	Absolute []Rule
	Relative []Rule
}

// contraindications per method, from the published meta-analyses and
// clinical guidelines each Source cites.
var contraindications = map[therapy.Method]ruleSet{
	therapy.MethodSomaticRegulation: {
		Absolute: []Rule{
			{
				Condition: "dissociation_active",
				Operator:  "==",
				Threshold: 1,
				Reason:    "Risque de dépersonnalisation et déréalisation",
				Source:    "Van der Hart et al. (2006)",
			},
			{
				Condition: "psychotic_symptoms",
				Operator:  "==",
				Threshold: 1,
				Reason:    "Risque de décompensation psychotique",
				Source:    "Clinical consensus",
			},
			{
				Condition: "trauma_complex_untreated",
				Operator:  "==",
				Threshold: 1,
				Reason:    "Risque de réactivation sans résolution",
				Source:    "Herman (1992)",
			},
		},
		Relative: []Rule{
			{
				Condition: "interoceptive_awareness",
				Operator:  "<",
				Threshold: 0.3,
				Reason:    "Capacité insuffisante de perception corporelle",
				Source:    "Mehling et al. (2012)",
			},
			{
				Condition: "emotional_arousal",
				Operator:  ">",
				Threshold: 0.9,
				Reason:    "Submersion émotionnelle - régulation impossible",
				Source:    "Porges (2011)",
			},
		},
	},
	therapy.MethodAcceptance: {
		Absolute: []Rule{
			{
				Condition: "mentalization_capacity",
				Operator:  "<",
				Threshold: 0.3,
				Reason:    "Capacité de mentalisation insuffisante pour travail métacognitif",
				Source:    "Fonagy & Target (1997)",
			},
			{
				Condition: "detresse",
				Operator:  ">",
				Threshold: 85,
				Reason:    "Détresse trop élevée pour travail cognitif complexe",
				Source:    "Hayes et al. (2006)",
			},
		},
		Relative: []Rule{
			{
				Condition: "therapeutic_alliance",
				Operator:  "<",
				Threshold: 0.6,
				Reason:    "Alliance thérapeutique insuffisante",
				Source:    "Wampold (2015)",
			},
			{
				Condition: "dissociation",
				Operator:  ">",
				Threshold: 0.6,
				Reason:    "Risque de déréalisation avec exercices de défusion",
				Source:    "A-Tjak et al. (2015)",
			},
		},
	},
	therapy.MethodExpressiveWriting: {
		Absolute: []Rule{
			{
				Condition: "emotional_flooding",
				Operator:  "==",
				Threshold: 1,
				Reason:    "Risque de retraumatisation sans cadre sécurisé",
				Source:    "Pennebaker & Beall (1986)",
			},
			{
				Condition: "rumination",
				Operator:  ">",
				Threshold: 0.8,
				Reason:    "Risque d'augmentation de la rumination",
				Source:    "Frattaroli (2006)",
			},
		},
		Relative: []Rule{
			{
				Condition: "emotional_arousal",
				Operator:  "<",
				Threshold: 0.4,
				Reason:    "Arousal insuffisant pour bénéfice thérapeutique",
				Source:    "Pennebaker (1997)",
			},
			{
				Condition: "emotional_arousal",
				Operator:  ">",
				Threshold: 0.8,
				Reason:    "Arousal trop élevé - zone optimale dépassée",
				Source:    "Smyth (1998)",
			},
			{
				Condition: "social_isolation",
				Operator:  ">",
				Threshold: 0.7,
				Reason:    "Risque de substitution aux relations sociales",
				Source:    "Lepore & Smyth (2002)",
			},
		},
	},
	therapy.MethodContinuingBonds: {
		Absolute: []Rule{
			{
				Condition: "complicated_grief",
				Operator:  "==",
				Threshold: 1,
				Reason:    "Risque de fixation pathologique dans le deuil",
				Source:    "Stroebe & Schut (2005)",
			},
		},
		Relative: []Rule{
			{
				Condition: "grief_avoidance",
				Operator:  ">",
				Threshold: 0.8,
				Reason:    "Évitement excessif - besoin de confrontation d'abord",
				Source:    "Stroebe & Schut (1999)",
			},
		},
	},
}

// prerequisites are the minimum capacities each method assumes.
var prerequisites = map[therapy.Method][]Rule{
	therapy.MethodSomaticRegulation: {
		{Condition: "interoceptive_awareness", Operator: ">", Threshold: 0.4},
		{Condition: "safety_perceived", Operator: ">", Threshold: 0.7},
		{Condition: "dissociation", Operator: "<", Threshold: 0.3},
	},
	therapy.MethodAcceptance: {
		{Condition: "mentalization_capacity", Operator: ">", Threshold: 0.4},
		{Condition: "cognitive_resources", Operator: ">", Threshold: 0.4},
		{Condition: "therapeutic_alliance", Operator: ">", Threshold: 0.6},
	},
	therapy.MethodExpressiveWriting: {
		{Condition: "emotional_arousal", Operator: ">", Threshold: 0.4},
		{Condition: "emotional_arousal", Operator: "<", Threshold: 0.8},
		{Condition: "cognitive_processing", Operator: ">", Threshold: 0.3},
	},
	therapy.MethodContinuingBonds: {
		{Condition: "grief_acceptance", Operator: ">", Threshold: 0.3},
		{Condition: "complicated_grief", Operator: "==", Threshold: 0},
	},
}

// bestPractices returned when a method is approved.
var bestPractices = map[therapy.Method][]string{
	therapy.MethodSomaticRegulation: {
		"Méthode appropriée",
		"Durée recommandée: 3-5 minutes",
		"Monitoring: Observer signes de dissociation",
		"Débriefing: Valider l'expérience après",
	},
	therapy.MethodAcceptance: {
		"Méthode appropriée",
		"Durée recommandée: 15-20 minutes",
		"Focus: Défusion cognitive progressive",
		"Monitoring: Vérifier compréhension des métaphores",
	},
	therapy.MethodExpressiveWriting: {
		"Méthode appropriée",
		"Protocole d'écriture: 15-20 minutes",
		"Thème unique: Explorer en profondeur",
		"Débriefing obligatoire: Normaliser détresse temporaire possible",
	},
	therapy.MethodContinuingBonds: {
		"Approche appropriée",
		"Principe: Accompagner, ne pas diriger",
		"Monitoring: Éviter fixation pathologique",
		"Équilibre: Loss-oriented / Restoration-oriented",
	},
}

func evaluate(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}
