// pkg/progress/display.go
//
// Heartbeat logging for operations that can run for minutes without output,
// such as cloning a large repository.

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultEvery is the heartbeat interval used by callers that have no opinion.
const DefaultEvery = 30 * time.Second

// Operation logs a "still working" line every interval until Done is called.
type Operation struct {
	Name  string
	Every time.Duration

	logger  otelzap.LoggerWithCtx
	started time.Time
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Start begins the heartbeat for name. An interval of zero or less disables
// the heartbeat; Done is still safe to call.
func Start(ctx context.Context, name string, every time.Duration) *Operation {
	op := &Operation{
		Name:    name,
		Every:   every,
		logger:  otelzap.Ctx(ctx),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	if every > 0 {
		op.wg.Add(1)
		go op.ticker()
	}
	return op
}

func (op *Operation) ticker() {
	defer op.wg.Done()

	ticker := time.NewTicker(op.Every)
	defer ticker.Stop()

	for {
		select {
		case <-op.done:
			return
		case <-ticker.C:
			op.logger.Info("Still working",
				zap.String("operation", op.Name),
				zap.Duration("elapsed", time.Since(op.started).Round(time.Second)))
		}
	}
}

// Done stops the heartbeat and returns the elapsed time. It waits for the
// heartbeat goroutine to exit and may be called more than once.
func (op *Operation) Done() time.Duration {
	op.once.Do(func() { close(op.done) })
	op.wg.Wait()
	return time.Since(op.started)
}
