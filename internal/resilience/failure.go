package resilience

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
)

// Failure records one item a stage could not process. Stages keep going and
// write these to a sidecar file so a later run can target them.
type Failure struct {
	Stage    string    `json:"stage"`
	Key      string    `json:"key"`
	Error    string    `json:"error"`
	Kind     string    `json:"kind"`
	FailedAt time.Time `json:"failed_at"`
}

// Classify labels err "transient" or "permanent".
func Classify(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

// Failures is a concurrency-safe collector.
type Failures struct {
	stage string

	mu    sync.Mutex
	items []Failure
}

// NewFailures creates a collector for stage.
func NewFailures(stage string) *Failures {
	return &Failures{stage: stage}
}

// Add records err against key. Nil errors are ignored.
func (f *Failures) Add(key string, err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, Failure{
		Stage:    f.stage,
		Key:      key,
		Error:    err.Error(),
		Kind:     Classify(err),
		FailedAt: time.Now().UTC(),
	})
}

// Len returns the number of recorded failures.
func (f *Failures) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// List returns failures sorted by key.
func (f *Failures) List() []Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]Failure(nil), f.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WriteSidecar writes the failures next to a stage's output file. Nothing is
// written when there are none.
func (f *Failures) WriteSidecar(outPath string) error {
	if f.Len() == 0 {
		return nil
	}
	path := artifact.SidecarPath(outPath, "failures")
	zap.L().Warn("stage finished with failures",
		zap.String("stage", f.stage),
		zap.Int("count", f.Len()),
		zap.String("path", path),
	)
	return artifact.WriteJSON(path, f.List())
}
