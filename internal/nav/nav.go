// Package nav records navigation targets for a headless runtime. Route
// changes land on Current; external browse targets (the hosted payment page)
// are kept separately so the embedder knows which URL to open out-of-app.
package nav

import (
	"context"
	"sync"

	"github.com/aduboahen/juicekart/pkg/logger"
)

// Recorder is the concrete Navigator: it remembers the latest in-app route
// and the latest external browse target.
type Recorder struct {
	mu      sync.Mutex
	current string
	browse  string
	logger  *logger.Logger
}

// NewRecorder builds the navigator.
func NewRecorder(logg *logger.Logger) *Recorder {
	return &Recorder{logger: logg}
}

// GoTo records an in-app route change.
func (r *Recorder) GoTo(route string) {
	r.mu.Lock()
	r.current = route
	r.mu.Unlock()
	r.log("route", route)
}

// Browse records an external URL the embedder must open.
func (r *Recorder) Browse(url string) {
	r.mu.Lock()
	r.browse = url
	r.mu.Unlock()
	r.log("browse", url)
}

// Current returns the latest in-app route.
func (r *Recorder) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// BrowseTarget returns the latest external URL handed off.
func (r *Recorder) BrowseTarget() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.browse
}

func (r *Recorder) log(kind, target string) {
	if r.logger == nil {
		return
	}
	ctx := r.logger.WithFields(context.Background(), map[string]any{
		"component": "nav",
		kind:        target,
	})
	r.logger.Info(ctx, "navigation")
}
