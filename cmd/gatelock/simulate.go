package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatelock/gatelock/internal/config"
	"github.com/gatelock/gatelock/internal/locker"
	"github.com/gatelock/gatelock/internal/logging"
	"github.com/gatelock/gatelock/internal/observability"
)

// Simulation scenarios. Each drives the scripted embed differently so every
// path of the session state machine can be exercised from the terminal.
const (
	scenarioComplete = "complete"  // embed loads, then signals completion
	scenarioError    = "error"     // embed loads, then signals a locker error
	scenarioLoadFail = "load-fail" // embed load fails on every attempt
	scenarioTimeout  = "timeout"   // embed stays silent past the soft timeout
)

// NewSimulateCmd creates the simulate subcommand.
func NewSimulateCmd() *cobra.Command {
	var (
		contentID    string
		redirectURL  string
		scenario     string
		loadDelay    time.Duration
		signalDelay  time.Duration
		interference bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an unlock session against a scripted embed",
		Long: `Run one full unlock session against a scripted offer-wall embed,
printing every state transition. Useful for exercising the workflow
without a browser or a live campaign.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			logging.SetDefault("gatelock", version, cfg.Log.Format)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			unlockStore, closeStore, err := openUnlockStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // best-effort close on exit

			if cfg.Observability.Addr != "" {
				obs := observability.NewServer(cfg.Observability.Addr, nil)
				if _, err := obs.Start(); err != nil {
					return err
				}
				defer obs.Stop(ctx) //nolint:errcheck // best-effort stop on exit
			}

			resolver, err := config.NewResolver(cfg)
			if err != nil {
				return err
			}

			bridge := locker.NewMessageBridge()
			script := &scriptedFactory{
				scenario:    scenario,
				loadDelay:   loadDelay,
				signalDelay: signalDelay,
				bridge:      bridge,
			}

			// When --interference is set the first probe reports blocking;
			// the recheck after the scripted "user disabled it" action runs
			// clean.
			probes := 0
			detector := locker.DetectorFunc(func() bool {
				probes++
				return interference && probes == 1
			})

			snapshots := make(chan locker.Snapshot, 16)
			engine := locker.NewEngine(locker.EngineConfig{
				Store:      unlockStore,
				Detector:   detector,
				Supervisor: locker.NewEmbedSupervisor(script, cfg.OfferHost),
				Bridge:     bridge,
				Navigator: locker.NavigatorFunc(func(url string) error {
					fmt.Fprintf(cmd.OutOrStdout(), "redirect -> %s\n", url)
					return nil
				}),
				Campaigns:   resolver,
				LoadTimeout: cfg.LoadTimeout,
				MaxRetries:  cfg.MaxRetries,
			})

			session := engine.Open(ctx, locker.Params{
				ContentID:   locker.ContentID(contentID),
				RedirectURL: redirectURL,
			}, func(snap locker.Snapshot) {
				snapshots <- snap
			})
			defer session.Close()

			return driveSession(ctx, cmd, session, snapshots)
		},
	}

	cmd.Flags().StringVar(&contentID, "content-id", "demo-1", "content id to unlock")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "https://example.com/download", "redirect target after unlock")
	cmd.Flags().StringVar(&scenario, "scenario", scenarioComplete, "embed script: complete, error, load-fail or timeout")
	cmd.Flags().DurationVar(&loadDelay, "load-delay", 300*time.Millisecond, "delay before the embed's load outcome")
	cmd.Flags().DurationVar(&signalDelay, "signal-delay", 500*time.Millisecond, "delay before the embed's protocol message")
	cmd.Flags().BoolVar(&interference, "interference", false, "simulate a content blocker on the first probe")

	return cmd
}

// driveSession prints transitions and plays the user: it rechecks after the
// blocker guidance, retries after failures, and stops on a terminal state.
func driveSession(ctx context.Context, cmd *cobra.Command, session *locker.Session, snapshots <-chan locker.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-snapshots:
			if snap.Message != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "state=%s attempts_left=%d\n%s\n", snap.State, snap.AttemptsLeft, snap.Message)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "state=%s attempts_left=%d\n", snap.State, snap.AttemptsLeft)
			}

			switch snap.State {
			case locker.StateBlocked:
				time.AfterFunc(200*time.Millisecond, session.Recheck)
			case locker.StateFailed:
				time.AfterFunc(200*time.Millisecond, session.Retry)
			case locker.StateExhausted:
				session.Close()
			case locker.StateClosed, locker.StateCompleted, locker.StateRedirecting:
				return nil
			}
		}
	}
}

// scriptedFactory materializes scripted frames in place of real browser
// iframes. Each frame plays out the selected scenario on its own timers,
// feeding protocol messages through the bridge exactly as a host page would.
type scriptedFactory struct {
	scenario    string
	loadDelay   time.Duration
	signalDelay time.Duration
	bridge      *locker.MessageBridge
}

func (f *scriptedFactory) CreateFrame(cfg locker.FrameConfig) (locker.Frame, error) {
	frame := &scriptedFrame{}

	switch f.scenario {
	case scenarioLoadFail:
		time.AfterFunc(f.loadDelay, func() {
			frame.fireError(fmt.Errorf("scripted load failure for %s", cfg.URL))
		})
	case scenarioError:
		time.AfterFunc(f.loadDelay, frame.fireLoad)
		time.AfterFunc(f.loadDelay+f.signalDelay, func() {
			f.bridge.Deliver([]byte(`{"error":"scripted locker error"}`))
		})
	case scenarioTimeout:
		// Stay silent through the soft timeout, then complete so the run
		// still finishes.
		time.AfterFunc(locker.DefaultLoadTimeout+f.signalDelay, func() {
			f.bridge.Deliver([]byte(`{"status":"completed"}`))
		})
	default: // scenarioComplete
		time.AfterFunc(f.loadDelay, frame.fireLoad)
		time.AfterFunc(f.loadDelay+f.signalDelay/2, func() {
			f.bridge.Deliver([]byte(`{"height":960}`))
		})
		time.AfterFunc(f.loadDelay+f.signalDelay, func() {
			f.bridge.Deliver([]byte(`{"status":"completed"}`))
		})
	}

	return frame, nil
}

// scriptedFrame is a Frame whose load outcome is driven by the factory's
// timers rather than a real page.
type scriptedFrame struct {
	mu       sync.Mutex
	onLoad   func()
	onError  func(error)
	detached bool
}

func (f *scriptedFrame) OnLoad(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onLoad = fn
}

func (f *scriptedFrame) OnError(fn func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onError = fn
}

func (f *scriptedFrame) SetHeight(int) {}

func (f *scriptedFrame) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = true
	f.onLoad = nil
	f.onError = nil
}

func (f *scriptedFrame) fireLoad() {
	f.mu.Lock()
	fn := f.onLoad
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *scriptedFrame) fireError(err error) {
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
