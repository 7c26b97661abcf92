package watch

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/mango-mice/sessiontap/internal/logger"
)

// notifier accelerates the poll loop with filesystem events. The periodic
// tick stays authoritative; events only wake a scan sooner, so losing them
// (or the directory not existing yet) degrades to plain polling.
type notifier struct {
	watcher *fsnotify.Watcher
	limiter *rate.Limiter
	wake    chan struct{}
	done    chan struct{}
}

func newNotifier(dir string) *notifier {
	n := &notifier{
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("fsnotify unavailable, polling only", "err", err)
		return n
	}
	if err := w.Add(dir); err != nil {
		logger.Debug("fsnotify watch failed, polling only", "dir", dir, "err", err)
		w.Close()
		return n
	}

	n.watcher = w
	go n.forward()
	return n
}

// forward turns raw events into coalesced wakeups. Write bursts are rate
// limited; a dropped wakeup is covered by the next tick.
func (n *notifier) forward() {
	for {
		select {
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !n.limiter.Allow() {
				continue
			}
			select {
			case n.wake <- struct{}{}:
			default:
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			logger.Debug("fsnotify error", "err", err)
		case <-n.done:
			return
		}
	}
}

// Wake returns the wakeup channel, nil when running without events. A nil
// channel never fires in a select, which is exactly the degraded behavior.
func (n *notifier) Wake() <-chan struct{} {
	if n.watcher == nil {
		return nil
	}
	return n.wake
}

func (n *notifier) Close() {
	close(n.done)
	if n.watcher != nil {
		n.watcher.Close()
	}
}
