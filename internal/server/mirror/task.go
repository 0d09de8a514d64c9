package mirror

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// ImportTask is a running import. It settles exactly once, with either a
// result or an error.
type ImportTask struct {
	done    chan struct{}
	once    sync.Once
	current atomic.Value

	result *models.ImportResult
	err    error
}

func newImportTask() *ImportTask {
	t := &ImportTask{done: make(chan struct{})}
	t.current.Store("")
	return t
}

// Done returns a channel which is closed when the import has settled.
func (t *ImportTask) Done() <-chan struct{} {
	return t.done
}

// ProcessingEntry returns the path of the archive entry being imported.
func (t *ImportTask) ProcessingEntry() string {
	return t.current.Load().(string)
}

// Result blocks until the task settles and returns its outcome.
func (t *ImportTask) Result() (*models.ImportResult, error) {
	<-t.done
	return t.result, t.err
}

// Wait is Result bounded by ctx. The import itself keeps running if ctx
// ends first; cancel the context given to Start to stop it.
func (t *ImportTask) Wait(ctx context.Context) (*models.ImportResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.result, t.err
	}
}

func (t *ImportTask) setCurrent(name string) {
	t.current.Store(name)
}

// settle records the outcome. Later calls are ignored.
func (t *ImportTask) settle(res *models.ImportResult, err error) {
	t.once.Do(func() {
		t.result, t.err = res, err
		close(t.done)
	})
}
