// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatelock/gatelock/pkg/errutil"
)

// SessionState is the enum driving the unlock workflow.
type SessionState string

const (
	StateInit        SessionState = "init"
	StateProbing     SessionState = "probing"
	StateBlocked     SessionState = "blocked"
	StateLoading     SessionState = "loading"
	StateReady       SessionState = "ready"
	StateCompleted   SessionState = "completed"
	StateFailed      SessionState = "failed"
	StateExhausted   SessionState = "exhausted"
	StateRedirecting SessionState = "redirecting"
	StateClosed      SessionState = "closed"
)

// Terminal reports whether the state ends the session.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateRedirecting, StateClosed:
		return true
	default:
		return false
	}
}

// DefaultLoadTimeout is the soft timeout for the embed's first signal. When
// it fires with no load outcome yet, the session assumes the embed is slow
// but present and moves to Ready without surfacing an error.
const DefaultLoadTimeout = 15 * time.Second

// blockedGuidance is shown when the interference probe finds a content
// blocker. The text pairs the failure with the actions the user can take.
const blockedGuidance = "Ad blocker detected. To access this content, please:\n" +
	"1. Disable your ad blocker for this site\n" +
	"2. Refresh the page\n" +
	"3. Try again\n\n" +
	"Need help? Check our FAQ for detailed instructions on disabling common ad blockers."

// embedLoadFailureText is shown for an embed that failed to load.
const embedLoadFailureText = "Failed to load offers. Please try again later."

// Navigator performs the final redirect out of the gated page.
type Navigator interface {
	Redirect(url string) error
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func(url string) error

// Redirect calls f.
func (f NavigatorFunc) Redirect(url string) error { return f(url) }

// CampaignResolver maps a content id to the offer campaign shown for it.
type CampaignResolver interface {
	CampaignID(id ContentID) string
}

// StaticCampaign resolves every content id to the same campaign.
type StaticCampaign string

// CampaignID returns the fixed campaign id.
func (c StaticCampaign) CampaignID(ContentID) string { return string(c) }

// Params opens an unlock session. Title and Description belong to the
// presentation layer and are echoed back untouched.
type Params struct {
	ContentID   ContentID
	RedirectURL string
	Title       string
	Description string
}

// Snapshot is what the presentation layer observes on every transition.
// Message carries guidance or error text; AttemptsLeft is the remaining
// retry budget. Nothing else crosses the session boundary.
type Snapshot struct {
	State        SessionState
	Message      string
	AttemptsLeft int
}

// EngineConfig wires the collaborators an Engine composes.
type EngineConfig struct {
	Store      UnlockStore
	Detector   InterferenceDetector
	Supervisor *EmbedSupervisor
	Bridge     *MessageBridge
	Navigator  Navigator
	Campaigns  CampaignResolver

	// LoadTimeout defaults to DefaultLoadTimeout, MaxRetries to MaxRetries,
	// Logger to slog.Default.
	LoadTimeout time.Duration
	MaxRetries  int
	Logger      *slog.Logger
}

// Engine opens unlock sessions. At most one session is live at a time:
// opening a new one first tears down the previous one.
type Engine struct {
	cfg EngineConfig

	mu      sync.Mutex
	current *Session
}

// NewEngine creates an engine from the given configuration.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = MaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{cfg: cfg}
}

// Open starts a session for the given params, pre-empting any session that
// is still live. onChange receives every state transition; it is invoked
// with the session quiescent and must not call back into the session
// synchronously (schedule Retry/Recheck/Close from the host event loop).
func (e *Engine) Open(ctx context.Context, p Params, onChange func(Snapshot)) *Session {
	id := ulid.Make()
	s := &Session{
		id:       id,
		cfg:      e.cfg,
		params:   p,
		onChange: onChange,
		ctx:      ctx,
		state:    StateInit,
		retry:    NewRetryState(e.cfg.MaxRetries),
		logger: e.cfg.Logger.With(
			"session_id", id.String(),
			"content_id", string(p.ContentID),
		),
	}

	e.mu.Lock()
	prev := e.current
	e.current = s
	e.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	s.start()
	return s
}

// Session is one run of the unlock workflow for a single content id. All
// signals — timer, embed callbacks, protocol messages, user actions — are
// serialized behind one mutex, the library rendition of the page's single
// event loop; whichever signal arrives first drives the transition and late
// signals for a dead attempt are dropped.
type Session struct {
	id       ulid.ULID
	cfg      EngineConfig
	params   Params
	onChange func(Snapshot)
	ctx      context.Context
	logger   *slog.Logger

	mu          sync.Mutex
	state       SessionState
	retry       RetryState
	handle      *EmbedHandle
	unsubscribe func()
	timer       *time.Timer
	loadStart   time.Time
	redirected  bool
}

// ID returns the session's unique identifier.
func (s *Session) ID() ulid.ULID { return s.id }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// start runs the Init entry action: consult the store and either redirect
// immediately or begin probing. Called exactly once, from Engine.Open.
func (s *Session) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlocked, err := s.cfg.Store.IsUnlocked(s.ctx, s.params.ContentID)
	if err != nil {
		// Fail safe: a broken store never grants access silently.
		errutil.LogError(s.logger, "unlock lookup failed", err)
		unlocked = false
	}
	sessionsOpened.WithLabelValues(boolLabel(unlocked)).Inc()

	if unlocked {
		s.enterRedirecting()
		return
	}
	s.enterProbing()
}

// Recheck re-runs the interference probe after the user reports having
// disabled their blocker. Only valid from Blocked.
func (s *Session) Recheck() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBlocked {
		return
	}
	s.enterProbing()
}

// Retry reloads the embed after a failure, consuming no budget by itself;
// the budget was charged when the failure was recorded. A no-op unless the
// session sits in Failed with attempts remaining.
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFailed || !CanRetry(s.retry) {
		return
	}
	retriesStarted.Inc()
	s.enterLoading()
}

// Close tears down the session from any state, terminal ones included, and
// is idempotent. Resources are released synchronously in a fixed order:
// embed first, then the bridge registration, then the pending timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.teardown()
	s.transition(StateClosed, "")
}

// HandleProtocol receives completed/error messages from the bridge.
func (s *Session) HandleProtocol(msg ProtocolMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Messages only act while an attempt is live. The offer wall can signal
	// completion before the load event, so Loading counts as live too.
	if s.state != StateLoading && s.state != StateReady {
		staleSignals.Inc()
		return
	}

	switch msg.Kind {
	case MessageCompleted:
		s.complete()
	case MessageError:
		s.logger.Warn("locker error message", "error", msg.Message)
		s.fail(msg.Message)
	}
}

// HandleResize forwards a sizing hint to the live rendering surface. No
// state transition occurs.
func (s *Session) HandleResize(height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		s.handle.SetHeight(height)
	}
}

// onEmbedReady is the load-success callback for one embed attempt.
func (s *Session) onEmbedReady(h *EmbedHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h != s.handle || s.state != StateLoading {
		staleSignals.Inc()
		return
	}
	s.stopTimer()
	embedLoadDuration.Observe(time.Since(s.loadStart).Seconds())
	s.transition(StateReady, "")
}

// onEmbedError is the load-failure callback for one embed attempt. Errors
// for a handle that is no longer live, or that arrive after the soft
// timeout already advanced the session, never move it backward.
func (s *Session) onEmbedError(h *EmbedHandle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h != s.handle || s.state != StateLoading {
		staleSignals.Inc()
		return
	}
	errutil.LogError(s.logger, "embed load failed", err)
	s.fail(embedLoadFailureText)
}

// onSoftTimeout fires when the embed produced no signal within the load
// timeout. The embed is assumed slow but present: the session moves to
// Ready with no error text, and only the loading indicator goes away.
func (s *Session) onSoftTimeout(h *EmbedHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h != s.handle || s.state != StateLoading {
		staleSignals.Inc()
		return
	}
	s.logger.Info("embed load timeout, assuming slow embed", "timeout", s.cfg.LoadTimeout)
	s.transition(StateReady, "")
}

// enterProbing runs the interference probe once and branches.
func (s *Session) enterProbing() {
	s.transition(StateProbing, "")

	if s.cfg.Detector.Detect() {
		interferenceDetections.Inc()
		s.transition(StateBlocked, blockedGuidance)
		return
	}
	s.enterLoading()
}

// enterLoading disposes any previous embed, creates a fresh one for this
// attempt, registers with the bridge, and arms the soft timeout.
func (s *Session) enterLoading() {
	s.disposeEmbed()
	s.transition(StateLoading, "")

	campaignID := s.cfg.Campaigns.CampaignID(s.params.ContentID)
	handle, err := s.cfg.Supervisor.Create(campaignID, s.onEmbedReady, s.onEmbedError)
	if err != nil {
		errutil.LogError(s.logger, "embed creation failed", err)
		s.fail(embedLoadFailureText)
		return
	}

	s.handle = handle
	s.loadStart = time.Now()
	s.unsubscribe = s.cfg.Bridge.Subscribe(s)
	s.timer = time.AfterFunc(s.cfg.LoadTimeout, func() { s.onSoftTimeout(handle) })
}

// fail records one burned attempt and lands in Failed or, once the budget
// is gone, in Exhausted. Exhaustion is irreversible for this session.
func (s *Session) fail(message string) {
	s.disposeEmbed()
	s.stopTimer()
	s.retry = NextAttempt(s.retry)

	if !CanRetry(s.retry) {
		s.releaseBridge()
		s.transition(StateExhausted, message)
		return
	}
	s.transition(StateFailed, message)
}

// complete persists the unlock and performs the redirect, at most once.
func (s *Session) complete() {
	s.stopTimer()

	if err := s.cfg.Store.MarkUnlocked(s.ctx, s.params.ContentID); err != nil {
		// Write failure is non-fatal: the user earned the redirect and may
		// simply be asked again next visit.
		errutil.LogError(s.logger, "persisting unlock failed", err)
	} else {
		unlocksPersisted.Inc()
	}

	s.teardown()
	s.transition(StateCompleted, "")
	s.navigate()
}

// enterRedirecting handles the already-unlocked fast path: no embed is ever
// created and no intermediate state is surfaced.
func (s *Session) enterRedirecting() {
	s.transition(StateRedirecting, "")
	s.navigate()
}

// navigate performs the final redirect exactly once per session.
func (s *Session) navigate() {
	if s.redirected {
		return
	}
	s.redirected = true

	if err := s.cfg.Navigator.Redirect(s.params.RedirectURL); err != nil {
		errutil.LogError(s.logger, "redirect failed", err)
		return
	}
	redirects.Inc()
	s.logger.Info("redirected to unlocked content", "url", s.params.RedirectURL)
}

// teardown releases every resource the session holds, in order: embed,
// bridge registration, timer. Safe to call repeatedly.
func (s *Session) teardown() {
	s.disposeEmbed()
	s.releaseBridge()
	s.stopTimer()
}

func (s *Session) disposeEmbed() {
	if s.handle != nil {
		s.handle.Dispose()
		s.handle = nil
	}
}

func (s *Session) releaseBridge() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// transition moves to the target state and notifies the presentation layer.
func (s *Session) transition(to SessionState, message string) {
	s.state = to
	stateTransitions.WithLabelValues(string(to)).Inc()
	s.logger.Debug("session transition", "state", string(to))

	if s.onChange != nil {
		s.onChange(Snapshot{
			State:        to,
			Message:      message,
			AttemptsLeft: s.retry.Remaining(),
		})
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
