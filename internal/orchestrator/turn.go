package orchestrator

import (
	"context"
	"fmt"
	"math"

	"solace/internal/detection"
	"solace/internal/emotion"
	"solace/internal/generation"
	"solace/internal/logging"
	"solace/internal/safety"
	"solace/internal/screening"
	"solace/internal/session"
	"solace/internal/therapy"
	"solace/internal/transition"
)

const (
	empathySystem = "Tu accompagnes une personne en deuil avec chaleur et simplicité. " +
		"Reformule le message suivant en français, en gardant exactement son intention et sa consigne, sans rien ajouter de clinique."
	planSystem = "Tu es un planificateur clinique. Synthétise en quelques phrases un plan " +
		"d'accompagnement à partir du message de la personne et des recommandations fournies."

	debriefingMessage = "Avant de continuer, revenons un instant sur la dernière fois. " +
		"Ce que vous avez ressenti était une réaction normale, pas un échec. " +
		"Comment vous sentez-vous par rapport à ce moment maintenant ?"
)

// StartRequest describes a session activation. Method may be empty; the
// orchestrator then detects candidates from the message and screens them
// in confidence order.
type StartRequest struct {
	UserID    string
	SessionID string // generated when empty
	Method    therapy.Method
	Message   string
	State     therapy.UserState
	Profile   therapy.Profile
	History   []therapy.Turn
	TContext  therapy.Context
}

// StartResult is the outcome of a session activation.
type StartResult struct {
	SessionID  string
	Method     therapy.Method
	Variation  string
	Prompt     string
	Step       int
	TotalSteps int
	Screening  screening.Result
	// Plan is the knowledge-provider synthesis of the screening notes.
	// Internal, never shown to the user.
	Plan string
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Status     session.TurnStatus
	Message    string
	Transition *transition.Recommendation
	Offer      string
	Summary    *session.Summary
	Alert      *safety.Alert
	Plan       *safety.InterventionPlan
	// Source reports whether the delivered phrasing came from the empathy
	// provider or from the deterministic pipeline text.
	Source generation.Source
}

// DetectCandidates scores every candidate method for a message, sorted by
// confidence. Pure; no session state is touched.
func (o *Orchestrator) DetectCandidates(
	ctx context.Context,
	message string,
	state therapy.UserState,
	profile therapy.Profile,
	history []therapy.Turn,
	tctx therapy.Context,
) []detection.Signal {
	return o.detection.DetectCandidates(ctx, message, state, profile, history, tctx)
}

// ShouldActivate is the yes/no activation check for a single method.
func (o *Orchestrator) ShouldActivate(
	ctx context.Context,
	method therapy.Method,
	message string,
	state therapy.UserState,
	profile therapy.Profile,
	history []therapy.Turn,
	tctx therapy.Context,
) bool {
	return o.detection.ShouldActivate(ctx, method, message, state, profile, history, tctx)
}

// StartSession activates a method for a user and returns the opening
// prompt. When the requested method is refused by screening, alternatives
// are screened in order; empathic validation is the safe default so the
// user is never left without a response.
func (o *Orchestrator) StartSession(ctx context.Context, req StartRequest) (StartResult, error) {
	unlock := o.locks.lock(req.UserID)
	defer unlock()

	analysis := emotion.AnalyzeOrEstimate(ctx, o.analyzer, req.Message,
		req.State.Distress, req.State.Hope, req.State.Energy)
	method, variation, screenRes := o.selectMethod(analysis, req)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = o.newID()
	}

	sess, start := o.machine.Start(req.UserID, sessionID, method, variation, req.State)

	var plan string
	if o.router != nil {
		planMessages := []generation.Message{
			{Role: "system", Content: planSystem},
			{Role: "user", Content: planPrompt(req.Message, screenRes)},
		}
		plan = o.router.GenerateKnowledge(ctx, planMessages).Text
	}

	if err := ctx.Err(); err != nil {
		return StartResult{}, fmt.Errorf("start abandoned: %w", err)
	}
	if err := o.sessions.Put(ctx, sess); err != nil {
		return StartResult{}, fmt.Errorf("commit session: %w", err)
	}

	logging.Orchestrator("started session=%s user=%s method=%s variation=%s risk=%s",
		sessionID, req.UserID, method, variation, screenRes.RiskLevel)

	return StartResult{
		SessionID:  sessionID,
		Method:     method,
		Variation:  variation,
		Prompt:     start.Prompt,
		Step:       start.Step,
		TotalSteps: start.TotalSteps,
		Screening:  screenRes,
		Plan:       plan,
	}, nil
}

// selectMethod screens candidates in confidence order and stops at the
// first approved one. Refusal alternatives are screened next; empathic
// validation closes the chain.
func (o *Orchestrator) selectMethod(analysis emotion.Analysis, req StartRequest) (therapy.Method, string, screening.Result) {
	type candidate struct {
		method    therapy.Method
		variation string
	}

	var candidates []candidate
	if req.Method != "" {
		candidates = append(candidates, candidate{method: req.Method})
	} else {
		for _, s := range o.detection.DetectWith(analysis, req.Message, req.State, req.Profile, req.History, req.TContext) {
			candidates = append(candidates, candidate{method: s.Method, variation: s.Variation})
		}
	}

	tried := make(map[therapy.Method]bool)
	var alternatives []therapy.Method

	for _, c := range candidates {
		if tried[c.method] {
			continue
		}
		tried[c.method] = true

		res := o.screening.Screen(c.method, req.State, req.Profile, analysis, req.TContext)
		if res.Approved {
			variation := c.variation
			if variation == "" {
				variation = detection.SelectVariation(c.method, req.Message, req.State)
			}
			return c.method, variation, res
		}
		alternatives = append(alternatives, res.Alternatives...)
	}

	for _, alt := range alternatives {
		if tried[alt] || alt == therapy.MethodEmpathicValidation {
			continue
		}
		tried[alt] = true

		res := o.screening.Screen(alt, req.State, req.Profile, analysis, req.TContext)
		if res.Approved {
			return alt, detection.SelectVariation(alt, req.Message, req.State), res
		}
	}

	res := o.screening.Screen(therapy.MethodEmpathicValidation, req.State, req.Profile, analysis, req.TContext)
	return therapy.MethodEmpathicValidation, "standard", res
}

// ProcessTurn advances the session for one user response, runs the safety
// checks and phrases the delivered message. The session is committed only
// after the whole pipeline has succeeded; a cancelled context leaves it
// untouched.
func (o *Orchestrator) ProcessTurn(
	ctx context.Context,
	sessionID string,
	response string,
	state therapy.UserState,
	tctx therapy.Context,
) (TurnResult, error) {
	peek, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	unlock := o.locks.lock(peek.UserID)
	defer unlock()

	// Re-read under the lock: another turn may have committed meanwhile.
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	if sess.DebriefingPending {
		sess.DebriefingPending = false
		if err := o.sessions.Put(ctx, sess); err != nil {
			return TurnResult{}, fmt.Errorf("commit session: %w", err)
		}
		logging.Orchestrator("debriefing delivered session=%s user=%s", sess.ID, sess.UserID)
		return TurnResult{Status: session.TurnAdjusted, Message: debriefingMessage}, nil
	}

	adv, err := o.machine.Advance(&sess, response, state, tctx)
	if err != nil {
		return TurnResult{}, err
	}

	result := TurnResult{
		Status:     adv.Status,
		Message:    adv.Message,
		Transition: adv.Transition,
		Offer:      adv.Offer,
		Summary:    adv.Summary,
	}

	current := snapshotFrom(state)
	baseline := safety.Snapshot{
		Distress:     sess.BaselineDistress,
		Dissociation: sess.BaselineDissociation,
	}
	alert := o.monitor.MonitorSession(ctx, sess.UserID, sess.Method, current, baseline,
		sess.Responses, o.now().Sub(sess.StartTime), state.Fatigue)
	if alert != nil {
		o.applyAlert(&sess, &result, alert)
	}

	if o.predictor != nil {
		level := safety.Assess(state.Distress, response)
		prediction := o.predictor.Predict(ctx, sess.UserID, current, state.Fatigue)
		plan := safety.PlanIntervention(safety.TierFor(level, state.Distress), prediction, tctx.EveningSession)
		result.Plan = &plan
	}

	if alert == nil && o.router != nil {
		result.Message, result.Source = o.phrase(ctx, result.Message)
	}

	if err := ctx.Err(); err != nil {
		return TurnResult{}, fmt.Errorf("turn abandoned: %w", err)
	}
	if err := o.sessions.Put(ctx, sess); err != nil {
		return TurnResult{}, fmt.Errorf("commit session: %w", err)
	}

	// Only after the completed status is committed: an abandoned turn must
	// not leave a history entry behind, or a re-run of the final step would
	// count the session twice and loosen the personalized thresholds.
	if result.Summary != nil {
		if err := o.monitor.RecordSessionOutcome(ctx, sess.UserID, current, baseline); err != nil {
			logging.OrchestratorDebug("session outcome not recorded user=%s: %v", sess.UserID, err)
		}
	}

	logging.Orchestrator("turn session=%s user=%s status=%s step=%d/%d alert=%v source=%s",
		sess.ID, sess.UserID, result.Status, sess.CurrentStep, sess.TotalSteps, alert != nil, result.Source)
	return result, nil
}

// applyAlert overrides the machine's output with a de-escalating message
// and records the consequences on the session.
func (o *Orchestrator) applyAlert(sess *session.Context, result *TurnResult, alert *safety.Alert) {
	result.Alert = alert
	result.Message = alertMessage(alert)
	result.Transition = nil
	result.Offer = ""
	result.Source = ""

	sess.Adjustments = append(sess.Adjustments, string(alert.EffectType))
	sess.DebriefingPending = alert.DebriefingRequired

	switch alert.RecommendedAction {
	case safety.ActionStopSession:
		if sess.Status == session.StatusInProgress {
			sess.Status = session.StatusAborted
		}
		if result.Status != session.TurnCompleted {
			result.Status = session.TurnAdjusted
		}
	case safety.ActionSwitchMethod:
		rec := transition.Recommendation{
			From:       sess.Method,
			To:         therapy.Method(alert.AlternativeMethod),
			Confidence: alert.Severity,
			Reason:     firstOf(alert.Indicators),
			Signals:    alert.Indicators,
		}
		sess.PendingTransition = &rec
		if sess.Status == session.StatusInProgress {
			sess.Status = session.StatusTransitioning
		}
		result.Status = session.TurnTransitionRecommended
		result.Transition = &rec
		result.Offer = transition.Offer(rec.From, rec.To)
	default:
		if result.Status == session.TurnInProgress {
			result.Status = session.TurnAdjusted
		}
	}

	logging.Audit("safety_override",
		"session", sess.ID,
		"user", sess.UserID,
		"effect", string(alert.EffectType),
		"action", string(alert.RecommendedAction),
		"severity", alert.Severity,
		"indicators", alert.Indicators,
	)
}

// phrase passes the pipeline's message through the empathy provider. The
// planned text rides as the user content, so the deterministic fallback
// echoes it unchanged.
func (o *Orchestrator) phrase(ctx context.Context, message string) (string, generation.Source) {
	res := o.router.GenerateEmpathy(ctx, []generation.Message{
		{Role: "system", Content: empathySystem},
		{Role: "user", Content: message},
	})
	if res.Source == generation.SourceProvider && res.Text != "" {
		return res.Text, res.Source
	}
	return message, generation.SourceFallback
}

// snapshotFrom projects the typed user state onto the safety metrics.
// Cognitive resources shrink with distress and arousal, mirroring the
// screening estimate.
func snapshotFrom(state therapy.UserState) safety.Snapshot {
	return safety.Snapshot{
		Distress:           state.Distress,
		Arousal:            state.Arousal,
		Dissociation:       state.Dissociation,
		Rumination:         state.CognitiveLoops,
		CognitiveResources: math.Max(0, 1-(state.Distress/100*0.6+state.Arousal*0.4)),
	}
}

func alertMessage(alert *safety.Alert) string {
	switch alert.RecommendedAction {
	case safety.ActionStopSession:
		return "On va s'arrêter là pour cet exercice, et c'est très bien ainsi. " +
			"Revenons ici et maintenant : sentez vos pieds au sol, votre respiration. Vous êtes en sécurité."
	case safety.ActionPauseSession:
		return "Faisons une pause. Prenez le temps de respirer tranquillement, rien ne presse. " +
			"Nous reprendrons quand vous vous sentirez prêt."
	case safety.ActionStabilization:
		return "Revenons à quelque chose de plus stable. Nommez cinq choses que vous voyez autour de vous, " +
			"quatre que vous pouvez toucher, trois que vous entendez."
	case safety.ActionSwitchMethod:
		return "Je vous propose de changer d'approche : un exercice plus doux pourrait mieux convenir en ce moment. " +
			"Voulez-vous essayer ?"
	default:
		return "Allons plus doucement. Une seule chose à la fois, prenez tout le temps qu'il vous faut."
	}
}

func planPrompt(message string, res screening.Result) string {
	out := "Message: " + message
	for _, rec := range res.Recommendations {
		out += "\n- " + rec
	}
	return out
}

func firstOf(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}
