// Package protocol loads and serves the therapeutic protocol catalog:
// per-method variations, their ordered steps, and the keyword-triggered
// adaptive responses the session machine falls back to when progression
// stalls. The catalog is YAML, schema-validated on load, and hot-reloadable
// through a filesystem watcher.
package protocol

import "solace/internal/therapy"

// Step is one instruction of a guided protocol.
type Step struct {
	Index             int      `yaml:"index" json:"index"`
	Instruction       string   `yaml:"instruction" json:"instruction"`
	Guidance          string   `yaml:"guidance,omitempty" json:"guidance,omitempty"`
	SuccessIndicators []string `yaml:"success_indicators,omitempty" json:"success_indicators,omitempty"`
}

// AdaptiveResponse is a keyword-triggered deviation from the step sequence.
type AdaptiveResponse struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Message  string   `yaml:"message" json:"message"`
}

// Variation is a named sub-protocol of a method.
type Variation struct {
	Steps             []Step                      `yaml:"steps" json:"steps"`
	AdaptiveResponses map[string]AdaptiveResponse `yaml:"adaptive_responses,omitempty" json:"adaptive_responses,omitempty"`
}

// Protocol groups the variations of one method.
type Protocol struct {
	Variations map[string]Variation `yaml:"variations" json:"variations"`
}

// Catalog is the full protocol catalog keyed by method.
type Catalog struct {
	Methods map[string]Protocol `yaml:"methods" json:"methods"`
}

// builtinVariation is the minimal safe protocol served when a catalog
// entry is missing or malformed. Generic enough to fit any method: locate,
// describe, stay with, observe.
func builtinVariation() Variation {
	return Variation{
		Steps: []Step{
			{
				Index:       0,
				Instruction: "Identifiez où dans votre corps vous ressentez cette émotion difficile.",
				SuccessIndicators: []string{
					"gorge", "poitrine", "ventre", "épaules", "dos", "tête",
				},
			},
			{
				Index:       1,
				Instruction: "Décrivez cette sensation physique sans la juger.",
				SuccessIndicators: []string{
					"chaud", "froid", "lourd", "léger", "serré", "pression", "tension",
				},
			},
			{
				Index:       2,
				Instruction: "Restez avec cette sensation, laissez-la évoluer naturellement.",
				SuccessIndicators: []string{
					"change", "bouge", "diminue", "augmente", "se déplace",
				},
			},
			{
				Index:       3,
				Instruction: "Notez les changements, même subtils.",
				SuccessIndicators: []string{
					"calme", "mieux", "apaisé", "léger",
				},
			},
		},
		AdaptiveResponses: map[string]AdaptiveResponse{
			"emptiness": {
				Keywords: []string{"je ne sens rien", "vide"},
				Message:  "Parfois le vide est une sensation en soi. Si vous le souhaitez, nous pouvons simplement porter attention à cette absence de sensation, cet espace vide dans le corps. Sans attente, juste être présent à ce qui est.",
			},
			"overwhelm": {
				Keywords: []string{"trop", "intense"},
				Message:  "C'est très intense. Prenons d'abord un moment pour vous ancrer. Sentez vos pieds sur le sol, votre dos contre le support. Puis, si vous le souhaitez, nous pourrons revenir à cette sensation.",
			},
			"intellectualization": {
				Keywords: []string{"je ne comprends pas"},
				Message:  "Il n'y a rien à comprendre, juste à observer. Comme si vous regardiez un paysage. Où dans votre corps ressentez-vous quelque chose en ce moment ?",
			},
		},
	}
}

// knownMethod reports whether the catalog key names a known method.
func knownMethod(name string) bool {
	return therapy.Method(name).Valid()
}
