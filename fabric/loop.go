package fabric

import (
	"context"
	"time"

	"github.com/marketpulse/pipeline/store"
)

// Mode is the --mode flag's value for Clean/Analyze (§6.4).
type Mode string

const (
	ModeEventDriven Mode = "event_driven"
	ModeContinuous  Mode = "continuous"
	ModeOnce        Mode = "once"
)

// RunModeLoop drives a stage's main loop per §6.4's mode semantics:
//   - once: a single pass, then return.
//   - continuous: pass, sleep pollInterval, repeat, ignoring upstream
//     notifications entirely.
//   - event_driven: block on sub.WaitOrPoll for the upstream
//     notification (or its poll-interval fallback), then pass, repeat.
//
// It stops when shutdown closes or ctx is cancelled, transitioning the
// worker through IDLE/PROCESSING/DRAINING/STOPPED (§4.1).
func RunModeLoop(ctx context.Context, worker *Worker, sub *store.Subscription, mode Mode, notificationsEnabled bool, pollInterval time.Duration, shutdown <-chan struct{}, pass func(context.Context) error) {
	_ = worker.Transition(StateConnected)
	_ = worker.Transition(StateIdle)

	runOnce := func() {
		_ = worker.Transition(StateProcessing)
		_ = pass(ctx)
		_ = worker.Transition(StateIdle)
	}

	switch mode {
	case ModeOnce:
		runOnce()

	case ModeContinuous:
	loopContinuous:
		for {
			runOnce()
			select {
			case <-shutdown:
				break loopContinuous
			case <-ctx.Done():
				break loopContinuous
			case <-time.After(pollInterval):
			}
		}

	default: // event_driven
	loopEventDriven:
		for {
			select {
			case <-shutdown:
				break loopEventDriven
			case <-ctx.Done():
				break loopEventDriven
			default:
			}
			if sub == nil {
				runOnce()
				select {
				case <-shutdown:
					break loopEventDriven
				case <-time.After(pollInterval):
				}
				continue
			}
			_, skipped, err := sub.WaitOrPoll(ctx, notificationsEnabled, pollInterval, nil)
			if err != nil {
				if ctx.Err() != nil {
					break loopEventDriven
				}
				continue
			}
			if skipped {
				continue
			}
			runOnce()
		}
	}

	_ = worker.Transition(StateDraining)
	_ = worker.Transition(StateStopped)
}
