package detection

import (
	"regexp"
	"strings"

	"solace/internal/therapy"
)

// Construct names a clinical construct scored from the message text.
type Construct string

const (
	ConstructCognitiveFusion       Construct = "cognitive_fusion"
	ConstructExperientialAvoidance Construct = "experiential_avoidance"
	ConstructRumination            Construct = "rumination"
	ConstructSomaticActivation     Construct = "somatic_activation"
	ConstructValuesSeeking         Construct = "values_seeking"
	ConstructMeaningSeeking        Construct = "meaning_seeking"
	ConstructUnsaidExpression      Construct = "unsaid_expression"
	ConstructConnectionSeeking     Construct = "connection_seeking"
)

// ConstructScorer scores a lowercased user message against each clinical
// construct, returning values in [0, 1]. Implementations must be safe for
// concurrent use.
type ConstructScorer interface {
	Score(message string) map[Construct]float64
}

// constructPatterns holds the validated French linguistic markers per
// construct. Kept as written in the clinical literature review; a score is
// the fraction of a construct's patterns that match.
var constructPatterns = map[Construct][]string{
	ConstructCognitiveFusion: {
		`\bje suis\s+(?:nul|mauvais|incapable|faible)\b`,
		`\bc'est\s+(?:impossible|fini|perdu|foutu)\b`,
		`\bje ne (?:peux|pourrai|pourrais) (?:jamais|plus)\b`,
		`\btoujours\s+(?:pareil|la même chose)\b`,
		`\bjamais\s+(?:rien|personne)\b`,
	},
	ConstructExperientialAvoidance: {
		`\b(?:éviter|fuir|oublier|ne pas penser)\b`,
		`\bje (?:ne veux pas|refuse de) (?:ressentir|sentir|éprouver)\b`,
		`\bme distraire\b`,
		`\bne (?:plus|pas) y penser\b`,
	},
	ConstructRumination: {
		`\bpourquoi (?:moi|ça|toujours)\b`,
		`\bsi seulement\b`,
		`\bj'aurais dû\b`,
		`\bje n'arrête pas de (?:penser|repenser)\b`,
		`\ben boucle\b`,
	},
	ConstructSomaticActivation: {
		`\b(?:boule|nœud|poids|serré|oppressé)\s+(?:dans|au)\s+(?:la\s+|le\s+|l'|ma\s+|mon\s+|sa\s+|son\s+)?(?:gorge|ventre|poitrine|cœur)\b`,
		`\b(?:tension|douleur|sensation)\s+(?:dans|au)\b`,
		`\bje sens (?:mon corps|physiquement|dans mon corps)\b`,
		`\b(?:tremblements|palpitations|souffle court)\b`,
	},
	ConstructValuesSeeking: {
		`\bqu'est-ce qui (?:compte|importe|a du sens)\b`,
		`\bce qui est (?:important|essentiel|fondamental)\b`,
		`\bmes valeurs\b`,
		`\bce que je veux (?:vraiment|profondément)\b`,
	},
	ConstructMeaningSeeking: {
		`\bpourquoi (?:ça|cela) (?:m')?arrive\b`,
		`\bquel (?:sens|signification)\b`,
		`\bcomprendre (?:pourquoi|le sens)\b`,
		`\bà quoi (?:ça sert|bon)\b`,
	},
	ConstructUnsaidExpression: {
		`\bje (?:n'ai|ne lui ai) (?:jamais|pas) dit\b`,
		`\bj'aurais (?:voulu|dû) (?:lui )?dire\b`,
		`\bregret(?:s)? de ne pas\b`,
		`\bsi j'avais pu (?:lui )?dire\b`,
		`\bnon-dits?\b`,
	},
	ConstructConnectionSeeking: {
		`\b(?:garder|maintenir|préserver) (?:le lien|la connexion|le contact)\b`,
		`\b(?:sentir|ressentir) (?:sa )?présence\b`,
		`\b(?:parler|s'adresser) à (?:lui|elle)\b`,
		`\bcomme si (?:il|elle) était (?:là|encore là)\b`,
	},
}

var metacognitiveMarkers = []string{
	`\bje pense que\b`,
	`\bj'ai l'impression que\b`,
	`\bil me semble que\b`,
	`\bje crois que\b`,
	`\bpeut-être que\b`,
}

var absoluteStatementRe = regexp.MustCompile(`\bje suis\b|\bc'est\b`)

// RegexScorer scores constructs with the compiled pattern tables.
type RegexScorer struct {
	patterns map[Construct][]*regexp.Regexp
	markers  []*regexp.Regexp
}

// NewRegexScorer compiles the construct tables once.
func NewRegexScorer() *RegexScorer {
	s := &RegexScorer{patterns: make(map[Construct][]*regexp.Regexp)}
	for construct, raw := range constructPatterns {
		compiled := make([]*regexp.Regexp, 0, len(raw))
		for _, p := range raw {
			compiled = append(compiled, regexp.MustCompile(p))
		}
		s.patterns[construct] = compiled
	}
	for _, m := range metacognitiveMarkers {
		s.markers = append(s.markers, regexp.MustCompile(m))
	}
	return s
}

// Score returns, per construct, the fraction of its patterns matching the
// message.
func (s *RegexScorer) Score(message string) map[Construct]float64 {
	lower := strings.ToLower(message)
	scores := make(map[Construct]float64, len(s.patterns))
	for construct, patterns := range s.patterns {
		matches := 0
		for _, p := range patterns {
			if p.MatchString(lower) {
				matches++
			}
		}
		scores[construct] = float64(matches) / float64(len(patterns))
	}
	return scores
}

// MetacognitionDeficit measures the absence of metacognitive markers
// ("je pense que", "il me semble que"). No markers combined with absolute
// statements indicates thought-reality fusion.
func (s *RegexScorer) MetacognitionDeficit(message string) float64 {
	lower := strings.ToLower(message)
	for _, m := range s.markers {
		if m.MatchString(lower) {
			return 0
		}
	}
	if absoluteStatementRe.MatchString(lower) {
		return 0.7
	}
	return 0.4
}

// Rigidity measures thematic perseveration as the average lexical overlap
// between consecutive user turns among the last five. Below three turns of
// history there is not enough signal.
func Rigidity(history []therapy.Turn) float64 {
	if len(history) < 3 {
		return 0
	}
	start := len(history) - 5
	if start < 0 {
		start = 0
	}
	var wordSets []map[string]struct{}
	for _, turn := range history[start:] {
		if turn.Role != "user" {
			continue
		}
		set := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(turn.Content)) {
			set[w] = struct{}{}
		}
		wordSets = append(wordSets, set)
	}
	if len(wordSets) < 2 {
		return 0
	}

	var sum float64
	for i := 0; i < len(wordSets)-1; i++ {
		inter, union := 0, len(wordSets[i+1])
		for w := range wordSets[i] {
			if _, ok := wordSets[i+1][w]; ok {
				inter++
			} else {
				union++
			}
		}
		if union == 0 {
			union = 1
		}
		sum += float64(inter) / float64(union)
	}
	return sum / float64(len(wordSets)-1)
}
