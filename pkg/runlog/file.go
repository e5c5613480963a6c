package runlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// FileRecorder appends runs as JSON lines to a file.
type FileRecorder struct {
	mu   sync.Mutex
	path string
}

// NewFileRecorder records into path, creating its directory if needed.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create run log directory")
	}
	return &FileRecorder{path: path}, nil
}

// Path returns the log file.
func (r *FileRecorder) Path() string { return r.path }

// Record appends run as one line.
func (r *FileRecorder) Record(_ context.Context, run Run) error {
	line, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode run")
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "open run log")
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "append run")
	}
	return f.Close()
}

// Runs reads back every recorded run, oldest first. Lines that do not
// decode are skipped. A missing file holds no runs.
func (r *FileRecorder) Runs() ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open run log")
	}
	defer f.Close()

	var runs []Run
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		var run Run
		if json.Unmarshal(sc.Bytes(), &run) == nil {
			runs = append(runs, run)
		}
	}
	if err := sc.Err(); err != nil {
		return runs, errors.Wrap(errors.ErrCodeIO, err, "read run log")
	}
	return runs, nil
}

// Close implements Recorder.
func (r *FileRecorder) Close() error { return nil }
