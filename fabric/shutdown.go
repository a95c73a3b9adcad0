package fabric

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ShutdownSignal installs a one-shot OS interrupt/terminate handler and
// returns a channel that closes exactly once when the signal arrives
// (§4.1 "Interrupt signals install a one-shot flag observed by the
// wait loop"), a shared signal.Notify(done, os.Interrupt,
// syscall.SIGTERM) pattern so every cmd/* entry point uses the same one.
func ShutdownSignal() <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once
	go func() {
		<-sigCh
		once.Do(func() { close(done) })
	}()
	return done
}
