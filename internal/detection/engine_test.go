package detection

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/internal/emotion"
	"solace/internal/therapy"
)

type stubAnalyzer struct {
	analysis emotion.Analysis
}

func (s stubAnalyzer) Analyze(context.Context, string) (emotion.Analysis, error) {
	return s.analysis, nil
}

func TestDetectSomaticFromBodilyComplaint(t *testing.T) {
	e := NewEngine(Config{})

	state := therapy.DefaultUserState()
	state.Distress = 65
	state.Dissociation = 0.2
	state.InteroceptiveAwareness = 0.6

	msg := "J'ai une boule dans la gorge depuis ce matin... je me sens serré dans ma poitrine"
	signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, therapy.DefaultContext())

	require.NotEmpty(t, signals)
	top := signals[0]
	assert.Equal(t, therapy.MethodSomaticRegulation, top.Method)
	assert.Greater(t, top.Confidence, 0.5)
	assert.Equal(t, "standard", top.Variation)

	found := false
	for _, ind := range top.Indicators {
		if strings.Contains(ind, "somatic activation") {
			found = true
		}
	}
	assert.True(t, found, "expected an indicator mentioning somatic activation, got %v", top.Indicators)
}

// Without an analyzer the engine estimates the emotion reading from the
// self-reported scores. Distress 70 with energy 60 maps to arousal 0.65,
// inside the optimal regulation zone, which a neutral reading (0.5) would
// miss.
func TestDetectionEstimatesArousalFromReportedScores(t *testing.T) {
	e := NewEngine(Config{})

	state := therapy.DefaultUserState()
	state.Distress = 70
	state.Energy = 60
	state.Dissociation = 0.2
	state.InteroceptiveAwareness = 0.6

	msg := "J'ai une boule dans la gorge depuis ce matin"
	signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, therapy.DefaultContext())

	require.NotEmpty(t, signals)
	top := signals[0]
	require.Equal(t, therapy.MethodSomaticRegulation, top.Method)
	assert.Greater(t, top.Confidence, 0.8)

	found := false
	for _, ind := range top.Indicators {
		if strings.Contains(ind, "optimal regulation zone") {
			found = true
		}
	}
	assert.True(t, found, "expected the arousal indicator, got %v", top.Indicators)
}

func TestDetectCandidatesSortedByConfidence(t *testing.T) {
	e := NewEngine(Config{})

	state := therapy.DefaultUserState()
	state.InteroceptiveAwareness = 0.6

	// Somatic and connection cues in one message.
	msg := "J'ai une boule dans la gorge et des palpitations, j'aimerais sentir sa présence et parler à elle"
	signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, therapy.DefaultContext())

	require.GreaterOrEqual(t, len(signals), 2)
	for i := 1; i < len(signals); i++ {
		assert.GreaterOrEqual(t, signals[i-1].Confidence, signals[i].Confidence)
	}
}

func TestActiveDissociationExcludesSomatic(t *testing.T) {
	e := NewEngine(Config{})

	state := therapy.DefaultUserState()
	state.Dissociation = 0.8
	state.InteroceptiveAwareness = 0.6

	msg := "J'ai une boule dans la gorge et un poids dans la poitrine"
	signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, therapy.DefaultContext())

	for _, s := range signals {
		assert.NotEqual(t, therapy.MethodSomaticRegulation, s.Method)
	}
}

func TestComplicatedGriefExcludesContinuingBonds(t *testing.T) {
	e := NewEngine(Config{})

	state := therapy.DefaultUserState()
	state.ComplicatedGrief = true

	msg := "Je veux sentir sa présence, parler à elle comme avant"
	signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, therapy.DefaultContext())

	for _, s := range signals {
		assert.NotEqual(t, therapy.MethodContinuingBonds, s.Method)
	}
}

func TestDetectAcceptanceNeedsMentalization(t *testing.T) {
	state := therapy.DefaultUserState()
	state.Distress = 60
	tctx := therapy.DefaultContext()
	tctx.Alliance = 0.7

	msg := "Je suis nul, c'est fini, je ne peux jamais y arriver"

	t.Run("fires with sufficient mentalization", func(t *testing.T) {
		e := NewEngine(Config{Analyzer: stubAnalyzer{emotion.Analysis{
			Arousal:             0.5,
			CognitiveFusion:     0.8,
			Mentalization:       0.6,
			CognitiveProcessing: 0.6,
			Source:              "service",
		}}})
		signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, tctx)
		require.NotEmpty(t, signals)
		assert.Equal(t, therapy.MethodAcceptance, signals[0].Method)
		assert.Equal(t, "defusion_cognitive", signals[0].Variation)
	})

	t.Run("absent below the mentalization floor", func(t *testing.T) {
		e := NewEngine(Config{Analyzer: stubAnalyzer{emotion.Analysis{
			Arousal:             0.5,
			CognitiveFusion:     0.8,
			Mentalization:       0.2,
			CognitiveProcessing: 0.6,
			Source:              "service",
		}}})
		signals := e.DetectCandidates(context.Background(), msg, state, therapy.Profile{}, nil, tctx)
		for _, s := range signals {
			assert.NotEqual(t, therapy.MethodAcceptance, s.Method)
		}
	})
}

func TestRigidity(t *testing.T) {
	t.Run("too little history", func(t *testing.T) {
		assert.Zero(t, Rigidity([]therapy.Turn{
			{Role: "user", Content: "toujours pareil"},
			{Role: "user", Content: "toujours pareil"},
		}))
	})

	t.Run("repetitive discourse scores high", func(t *testing.T) {
		turns := []therapy.Turn{
			{Role: "user", Content: "pourquoi il est parti pourquoi"},
			{Role: "assistant", Content: "je vous entends"},
			{Role: "user", Content: "pourquoi il est parti pourquoi"},
			{Role: "user", Content: "pourquoi il est parti pourquoi"},
		}
		assert.Greater(t, Rigidity(turns), 0.9)
	})

	t.Run("varied discourse scores low", func(t *testing.T) {
		turns := []therapy.Turn{
			{Role: "user", Content: "aujourd'hui le travail était difficile"},
			{Role: "user", Content: "ma sœur vient demain"},
			{Role: "user", Content: "je voudrais cuisiner quelque chose"},
		}
		assert.Less(t, Rigidity(turns), 0.2)
	})
}

func TestMetacognitionDeficit(t *testing.T) {
	s := NewRegexScorer()

	tests := []struct {
		name    string
		message string
		want    float64
	}{
		{"marker present", "je pense que c'est difficile en ce moment", 0},
		{"absolute without markers", "je suis complètement perdu", 0.7},
		{"no markers no absolutes", "rien ne va plus depuis hier", 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.MetacognitionDeficit(tt.message))
		})
	}
}

func TestShouldActivateGates(t *testing.T) {
	e := NewEngine(Config{})
	ctx := context.Background()
	base := therapy.DefaultUserState()
	tctx := therapy.DefaultContext()

	t.Run("meaning making on meaning language", func(t *testing.T) {
		ok := e.ShouldActivate(ctx, therapy.MethodMeaningMaking, "je voudrais comprendre pourquoi", base, therapy.Profile{}, nil, tctx)
		assert.True(t, ok)
	})

	t.Run("meaning making refused under extreme distress", func(t *testing.T) {
		state := base
		state.Distress = 95
		ok := e.ShouldActivate(ctx, therapy.MethodMeaningMaking, "pourquoi moi", state, therapy.Profile{}, nil, tctx)
		assert.False(t, ok)
	})

	t.Run("physiological regulation on hyper-activation", func(t *testing.T) {
		state := base
		state.Arousal = 0.9
		ok := e.ShouldActivate(ctx, therapy.MethodPhysioRegulation, "", state, therapy.Profile{}, nil, tctx)
		assert.True(t, ok)
	})

	t.Run("physiological regulation on numbness", func(t *testing.T) {
		state := base
		state.Arousal = 0.5
		state.EmotionalNumbness = 0.8
		ok := e.ShouldActivate(ctx, therapy.MethodPhysioRegulation, "", state, therapy.Profile{}, nil, tctx)
		assert.True(t, ok)
	})

	t.Run("mindfulness needs mental agitation", func(t *testing.T) {
		state := base
		state.CognitiveLoops = 0.5
		assert.True(t, e.ShouldActivate(ctx, therapy.MethodMindfulness, "", state, therapy.Profile{}, nil, tctx))
		state.CognitiveLoops = 0.2
		assert.False(t, e.ShouldActivate(ctx, therapy.MethodMindfulness, "", state, therapy.Profile{}, nil, tctx))
	})

	t.Run("empathic validation always available", func(t *testing.T) {
		state := base
		state.Distress = 99
		state.Dissociation = 0.9
		assert.True(t, e.ShouldActivate(ctx, therapy.MethodEmpathicValidation, "", state, therapy.Profile{}, nil, tctx))
	})
}

func TestSelectVariation(t *testing.T) {
	tests := []struct {
		name    string
		method  therapy.Method
		message string
		mutate  func(*therapy.UserState)
		want    string
	}{
		{"meaning dereflexion on loops", therapy.MethodMeaningMaking, "", func(s *therapy.UserState) { s.CognitiveLoops = 0.8 }, "dereflexion"},
		{"meaning suffering on distress", therapy.MethodMeaningMaking, "", func(s *therapy.UserState) { s.Distress = 80 }, "sens_dans_souffrance"},
		{"meaning default", therapy.MethodMeaningMaking, "", nil, "exploration_sens"},
		{"narrative externalisation on identity fusion", therapy.MethodNarrative, "je ne suis plus que mon deuil", nil, "externalisation"},
		{"narrative default", therapy.MethodNarrative, "il y a tant à raconter", nil, "reconstruction_temporelle"},
		{"physio mobilisation on numbness", therapy.MethodPhysioRegulation, "", func(s *therapy.UserState) { s.EmotionalNumbness = 0.8 }, "mobilisation_douce"},
		{"physio co-regulation on loneliness", therapy.MethodPhysioRegulation, "", func(s *therapy.UserState) { s.Loneliness = 0.8 }, "co_regulation"},
		{"physio default", therapy.MethodPhysioRegulation, "", nil, "regulation_ventrale"},
		{"mindfulness body scan", therapy.MethodMindfulness, "", func(s *therapy.UserState) { s.BodyAwareness = 0.7 }, "body_scan_grief"},
		{"mindfulness default", therapy.MethodMindfulness, "", nil, "ancrage_souffle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := therapy.DefaultUserState()
			if tt.mutate != nil {
				tt.mutate(&state)
			}
			assert.Equal(t, tt.want, SelectVariation(tt.method, tt.message, state))
		})
	}
}
