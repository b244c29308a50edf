package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/ghsweep/ghsweep/internal/apierror"
	"github.com/ghsweep/ghsweep/internal/logging"
)

// Pass is the common shape of ContentPass, MetadataPass, and HistoryPass:
// one full sweep of the result store.
type Pass interface {
	Run(ctx context.Context) error
}

// SupervisedPass adapts a Pass into a suture.Service so a panic inside one
// pass's worker goroutines is logged and the pass is restarted rather than
// taking the whole fetch-* invocation (or the collector's scan) down with
// it. Returning nil tells suture the service stopped cleanly and must not
// be restarted — true of a clean finish, a context cancellation, and a
// terminal error (see isTerminal); any other error triggers suture's own
// restart/backoff instead of reaching the caller at all.
//
// Because a supervisor's own Serve(ctx) return value does not carry a
// child service's final error, SupervisedPass remembers the last failure
// so the caller can still distinguish success from a terminal error after
// the supervisor returns, keeping Configuration and Irreducible errors on
// the path to the outer exit while Transient and Permanent errors stay
// local and simply drive a restart.
type SupervisedPass struct {
	name string
	pass Pass
	done chan struct{}

	mu       sync.Mutex
	lastFail error
}

// Supervise wraps pass as a suture.Service labeled name, for registration
// on a *suture.Supervisor in cmd/ghsweep.
func Supervise(name string, pass Pass) *SupervisedPass {
	return &SupervisedPass{name: name, pass: pass, done: make(chan struct{}, 1)}
}

// Done signals once the wrapped pass stops for good (a clean finish, a
// context cancellation, or a terminal error), letting the caller stop the
// supervisor instead of blocking on it forever — a one-shot sweep has no
// "keep serving" state to wait on the way a long-running server would. A
// run that fails with a restartable error does not signal it.
func (s *SupervisedPass) Done() <-chan struct{} { return s.done }

// Serve implements suture.Service.
func (s *SupervisedPass) Serve(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("pass", s.name).
				Interface("panic", r).
				Msg("fetch: pass panicked, supervisor will restart remaining work")
			err = fmt.Errorf("pass %s panicked: %v", s.name, r)
		}
	}()

	runErr := s.pass.Run(ctx)
	if runErr == nil {
		s.mu.Lock()
		s.lastFail = nil
		s.mu.Unlock()
	}
	if runErr == nil || errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		s.signalDone()
		return nil
	}

	s.mu.Lock()
	s.lastFail = runErr
	s.mu.Unlock()

	if isTerminal(runErr) {
		logging.Ctx(ctx).Error().Str("pass", s.name).Err(runErr).Msg("fetch: pass hit a terminal error, supervisor will not restart")
		s.signalDone()
		return nil
	}

	logging.Ctx(ctx).Warn().Str("pass", s.name).Err(runErr).Msg("fetch: pass exited with an error, supervisor will restart remaining work")
	return fmt.Errorf("pass %s: %w", s.name, runErr)
}

func (s *SupervisedPass) signalDone() {
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// isTerminal reports whether err belongs to one of the two taxonomy
// categories that must reach the outer exit path rather than trigger a
// suture restart: Configuration (fatal at startup) and Irreducible (a scan
// that cannot converge). Every other error, including Transient, is
// restartable — the supervisor retries the pass's remaining work instead of
// letting a retryable upstream failure exit the whole process.
func isTerminal(err error) bool {
	var cfg *apierror.Configuration
	if errors.As(err, &cfg) {
		return true
	}
	var irr *apierror.Irreducible
	return errors.As(err, &irr)
}

// LastFailure returns the most recent error the wrapped pass returned, or
// nil if it last ran clean. Callers check this after the supervisor's own
// Serve/ServeBackground returns (e.g. because its context was canceled)
// to decide whether the invocation as a whole succeeded.
func (s *SupervisedPass) LastFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFail
}

// String implements suture's optional Stringer for friendlier log lines.
func (s *SupervisedPass) String() string { return s.name }
