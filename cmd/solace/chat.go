package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"solace/internal/detection"
	"solace/internal/emotion"
	"solace/internal/generation"
	"solace/internal/orchestrator"
	"solace/internal/protocol"
	"solace/internal/safety"
	"solace/internal/screening"
	"solace/internal/session"
	"solace/internal/store"
	"solace/internal/therapy"
	"solace/internal/transition"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive therapeutic session loop",
	Long: `Reads messages from stdin. The first message activates a session
through detection and screening; every following message advances the
active protocol one step under safety monitoring, until completion or a
safety stop. Type /quit to leave, /state to inspect the current session.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return chatLoop(ctx, orch, os.Stdin, os.Stdout)
}

// buildOrchestrator assembles the turn pipeline from configuration. The
// returned cleanup closes every store and watcher it opened.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	protocols, err := protocol.NewStore(cfg.Protocols.Path)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to load protocol catalog: %w", err)
	}
	if cfg.Protocols.Watch && cfg.Protocols.Path != "" {
		watcher, err := protocol.NewWatcher(protocols)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create catalog watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("failed to watch catalog: %w", err)
		}
		closers = append(closers, watcher.Stop)
	}

	var analyzer emotion.Analyzer
	if cfg.Emotion.BaseURL != "" {
		client := emotion.NewClient(cfg.Emotion.BaseURL)
		client.SetTimeout(cfg.EmotionTimeout())
		analyzer = client
	}

	knowledge, err := generation.NewProvider(ctx, generation.ProviderConfig(cfg.Generation.Knowledge))
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to build knowledge provider: %w", err)
	}
	empathy, err := generation.NewProvider(ctx, generation.ProviderConfig(cfg.Generation.Empathy))
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to build empathy provider: %w", err)
	}
	router := generation.NewRouter(knowledge, empathy)

	var sessions session.Store = session.NewMemoryStore()
	if cfg.Session.RedisAddr != "" {
		redisStore, err := store.NewRedisSessionStore(ctx, store.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect session store: %w", err)
		}
		closers = append(closers, func() { _ = redisStore.Close() })
		sessions = redisStore
	}

	var history safety.SessionHistory = safety.NewMemorySessionHistory()
	var observations safety.ObservationLog = safety.NewMemoryObservationLog()
	if cfg.Storage.DatabasePath != "" {
		safetyStore, err := store.OpenSafetyStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open safety history: %w", err)
		}
		closers = append(closers, func() { _ = safetyStore.Close() })
		history = safetyStore
		observations = safetyStore.ObservationLog()
	}

	trend := safety.NewTrendAnalyzer(observations)
	adaptive := safety.NewAdaptiveThresholds(history, safety.DefaultThresholds())
	predictor := safety.NewPredictor(trend)

	orch := orchestrator.New(orchestrator.Config{
		Detection: detection.NewEngine(detection.Config{}),
		Screening: screening.NewEngine(),
		Machine:   session.NewMachine(protocols, transition.NewEngine()),
		Sessions:  sessions,
		Monitor:   safety.NewMonitor(adaptive, trend, predictor),
		Predictor: predictor,
		Router:    router,
		Analyzer:  analyzer,
	})
	return orch, cleanup, nil
}

// chatLoop runs the read-process-print cycle until EOF or /quit. One
// session is active at a time; a completed or stopped session hands the
// next message back to activation.
func chatLoop(ctx context.Context, orch *orchestrator.Orchestrator, in io.Reader, out io.Writer) error {
	state := therapy.DefaultUserState()
	tctx := therapy.DefaultContext()

	var sessionID string
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "solace - tapez votre message, /quit pour sortir")
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit", line == "/exit":
			return nil
		case line == "/state":
			if sessionID == "" {
				fmt.Fprintln(out, "aucune session active")
			} else {
				fmt.Fprintf(out, "session %s\n", sessionID)
			}
		default:
			sessionID = handleMessage(ctx, orch, out, sessionID, line, state, tctx)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

// handleMessage advances the active session, or starts one when none is
// active. Returns the session to use for the next message, empty when the
// session ended this turn.
func handleMessage(
	ctx context.Context,
	orch *orchestrator.Orchestrator,
	out io.Writer,
	sessionID, message string,
	state therapy.UserState,
	tctx therapy.Context,
) string {
	if sessionID != "" {
		res, err := orch.ProcessTurn(ctx, sessionID, message, state, tctx)
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			// Session expired or aborted elsewhere; fall through to activation.
		case err != nil:
			fmt.Fprintf(out, "erreur: %v\n", err)
			return sessionID
		default:
			printTurn(out, res)
			if res.Status == session.TurnCompleted || res.Summary != nil {
				return ""
			}
			if res.Alert != nil && res.Alert.RecommendedAction == safety.ActionStopSession {
				return sessionID // next turn delivers the debriefing
			}
			return sessionID
		}
	}

	start, err := orch.StartSession(ctx, orchestrator.StartRequest{
		UserID:   chatUserID,
		Message:  message,
		State:    state,
		TContext: tctx,
	})
	if err != nil {
		fmt.Fprintf(out, "erreur: %v\n", err)
		return ""
	}
	fmt.Fprintf(out, "[%s/%s, étape 1/%d]\n%s\n", start.Method, start.Variation, start.TotalSteps, start.Prompt)
	return start.SessionID
}

func printTurn(out io.Writer, res orchestrator.TurnResult) {
	fmt.Fprintln(out, res.Message)
	if res.Offer != "" {
		fmt.Fprintln(out, res.Offer)
	}
	if res.Alert != nil {
		fmt.Fprintf(out, "[sécurité: %s, action %s]\n", res.Alert.EffectType, res.Alert.RecommendedAction)
	}
	if res.Summary != nil {
		fmt.Fprintf(out, "[session terminée: %d étapes]\n", res.Summary.StepsCompleted)
	}
}
