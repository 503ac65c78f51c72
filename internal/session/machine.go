package session

import (
	"sort"
	"strings"
	"time"

	"solace/internal/logging"
	"solace/internal/protocol"
	"solace/internal/therapy"
	"solace/internal/transition"
)

// TurnStatus is the outcome of one advance call.
type TurnStatus string

const (
	TurnInProgress              TurnStatus = "in_progress"
	TurnAdjusted                TurnStatus = "adjusted"
	TurnCompleted               TurnStatus = "completed"
	TurnCompletedWithTransition TurnStatus = "completed_with_transition"
	TurnTransitionRecommended   TurnStatus = "transition_recommended"
)

const (
	completionMessage  = "Vous avez fait un beau travail d'observation. Comment vous sentez-vous maintenant ?"
	continuationPrompt = "Continuons ensemble."
	defaultLocation    = "votre corps"
)

// Progression weighting: success indicators dominate, response length
// saturates at responseLengthCap runes.
const (
	indicatorWeight   = 0.7
	lengthWeight      = 0.3
	indicatorTarget   = 2
	responseLengthCap = 200
	progressionFloor  = 0.5
)

// Summary describes a finished session.
type Summary struct {
	Method             therapy.Method `json:"method"`
	Variation          string         `json:"variation"`
	StepsCompleted     int            `json:"steps_completed"`
	AverageProgression float64        `json:"average_progression"`
	AdjustmentsCount   int            `json:"adjustments_count"`
}

// StartResult is the opening prompt of a new session.
type StartResult struct {
	Prompt     string
	Step       int
	TotalSteps int
	Variation  string
}

// AdvanceResult is the outcome of consuming one user response.
type AdvanceResult struct {
	Status     TurnStatus
	Message    string
	Transition *transition.Recommendation
	Offer      string
	Summary    *Summary
}

// Machine drives protocol execution. It is stateless; all session state
// lives in the Context the caller passes in and commits back.
type Machine struct {
	protocols   *protocol.Store
	transitions *transition.Engine
	now         func() time.Time
}

// NewMachine creates a session machine over a protocol catalog and a
// transition engine.
func NewMachine(protocols *protocol.Store, transitions *transition.Engine) *Machine {
	return &Machine{protocols: protocols, transitions: transitions, now: time.Now}
}

// Start creates a session context for a method variation and emits the
// step-0 prompt. The variation is snapshotted into the context.
func (m *Machine) Start(userID, sessionID string, method therapy.Method, variation string, state therapy.UserState) (Context, StartResult) {
	v := m.protocols.Variation(method, variation)

	sess := Context{
		ID:                   sessionID,
		UserID:               userID,
		Method:               method,
		Variation:            variation,
		Protocol:             v,
		Status:               StatusInProgress,
		TotalSteps:           len(v.Steps),
		StartTime:            m.now(),
		BaselineDistress:     state.Distress,
		BaselineDissociation: state.Dissociation,
	}

	prompt := continuationPrompt
	if len(v.Steps) > 0 {
		prompt = renderInstruction(v.Steps[0].Instruction, state)
	}
	logging.Session("started session=%s user=%s method=%s variation=%s steps=%d",
		sessionID, userID, method, variation, sess.TotalSteps)

	return sess, StartResult{
		Prompt:     prompt,
		Step:       0,
		TotalSteps: sess.TotalSteps,
		Variation:  variation,
	}
}

// Advance consumes one user response and moves the session forward. The
// passed context is mutated in place; the caller commits it afterwards.
func (m *Machine) Advance(sess *Context, response string, state therapy.UserState, tctx therapy.Context) (AdvanceResult, error) {
	if sess == nil || sess.Status != StatusInProgress {
		return AdvanceResult{}, ErrNoActiveSession
	}

	if sess.TotalSteps == 0 {
		sess.Responses = append(sess.Responses, response)
		return AdvanceResult{Status: TurnInProgress, Message: continuationPrompt}, nil
	}

	step := sess.Protocol.Steps[sess.CurrentStep]
	score := progressionScore(response, step.SuccessIndicators)
	sess.Responses = append(sess.Responses, response)
	sess.ProgressionScores = append(sess.ProgressionScores, score)

	logging.SessionDebug("session=%s step=%d progression=%.2f", sess.ID, sess.CurrentStep, score)

	if score < progressionFloor {
		if name, adaptive, ok := matchAdaptiveResponse(sess.Protocol.AdaptiveResponses, response); ok {
			sess.Adjustments = append(sess.Adjustments, name)
			logging.Session("session=%s adaptive response %q at step %d", sess.ID, name, sess.CurrentStep)
			return AdvanceResult{Status: TurnAdjusted, Message: adaptive.Message}, nil
		}
	}

	sess.CurrentStep++
	if sess.CurrentStep >= sess.TotalSteps {
		return m.complete(sess, response, state, tctx), nil
	}

	next := sess.Protocol.Steps[sess.CurrentStep]
	return AdvanceResult{
		Status:  TurnInProgress,
		Message: renderInstruction(next.Instruction, state),
	}, nil
}

func (m *Machine) complete(sess *Context, finalResponse string, state therapy.UserState, tctx therapy.Context) AdvanceResult {
	sess.Status = StatusCompleted
	summary := m.Summarize(sess)

	res := AdvanceResult{
		Status:  TurnCompleted,
		Message: completionMessage,
		Summary: &summary,
	}

	if rec, ok := m.transitions.Recommend(sess.Method, finalResponse, state, tctx); ok {
		sess.Status = StatusTransitioning
		sess.PendingTransition = &rec
		res.Status = TurnCompletedWithTransition
		res.Transition = &rec
		res.Offer = transition.Offer(rec.From, rec.To)
	}

	logging.Session("completed session=%s method=%s steps=%d avg_progression=%.2f status=%s",
		sess.ID, sess.Method, summary.StepsCompleted, summary.AverageProgression, res.Status)
	return res
}

// Summarize builds the closing summary for a session.
func (m *Machine) Summarize(sess *Context) Summary {
	var avg float64
	if len(sess.ProgressionScores) > 0 {
		var sum float64
		for _, s := range sess.ProgressionScores {
			sum += s
		}
		avg = sum / float64(len(sess.ProgressionScores))
	}
	return Summary{
		Method:             sess.Method,
		Variation:          sess.Variation,
		StepsCompleted:     sess.CurrentStep,
		AverageProgression: avg,
		AdjustmentsCount:   len(sess.Adjustments),
	}
}

// progressionScore estimates how well a response advances the current
// step: matched success indicators saturate at indicatorTarget, response
// length saturates at responseLengthCap runes.
func progressionScore(response string, indicators []string) float64 {
	lower := strings.ToLower(response)

	var matched int
	for _, ind := range indicators {
		if strings.Contains(lower, strings.ToLower(ind)) {
			matched++
		}
	}
	indicatorScore := float64(matched) / indicatorTarget
	if indicatorScore > 1 {
		indicatorScore = 1
	}

	lengthScore := float64(len([]rune(response))) / responseLengthCap
	if lengthScore > 1 {
		lengthScore = 1
	}

	return indicatorWeight*indicatorScore + lengthWeight*lengthScore
}

// matchAdaptiveResponse scans triggers in name order so repeated calls on
// the same response pick the same deviation.
func matchAdaptiveResponse(responses map[string]protocol.AdaptiveResponse, response string) (string, protocol.AdaptiveResponse, bool) {
	lower := strings.ToLower(response)

	names := make([]string, 0, len(responses))
	for name := range responses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, kw := range responses[name].Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return name, responses[name], true
			}
		}
	}
	return "", protocol.AdaptiveResponse{}, false
}

func renderInstruction(instruction string, state therapy.UserState) string {
	location := state.EmotionLocation
	if location == "" {
		location = defaultLocation
	}
	return strings.ReplaceAll(instruction, "{location}", location)
}
