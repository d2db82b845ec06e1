package logging

import (
	"context"
	"sync"
)

// Entry is one record captured by a Recorder.
type Entry struct {
	Level     LogLevel
	Message   string
	Err       error
	Component string
	Fields    map[string]interface{}
}

// Recorder is a Logger that keeps every record in memory. It is safe for
// concurrent use and is meant for tests.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry

	component string
	fields    []interface{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
	}
}

func (r *Recorder) Debug(ctx context.Context, msg string, fields ...interface{}) {
	r.record(LevelDebug, nil, msg, fields)
}

func (r *Recorder) Info(ctx context.Context, msg string, fields ...interface{}) {
	r.record(LevelInfo, nil, msg, fields)
}

func (r *Recorder) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelWarn, err, msg, fields)
}

func (r *Recorder) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelError, err, msg, fields)
}

// With returns a Recorder sharing the same entry log with extra fields.
func (r *Recorder) With(fields ...interface{}) Logger {
	merged := append(append([]interface{}{}, r.fields...), fields...)
	return &Recorder{mu: r.mu, entries: r.entries, component: r.component, fields: merged}
}

// WithComponent returns a Recorder sharing the same entry log.
func (r *Recorder) WithComponent(component string) Logger {
	return &Recorder{mu: r.mu, entries: r.entries, component: component, fields: r.fields}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Count returns how many records were logged at level.
func (r *Recorder) Count(level LogLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range *r.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = (*r.entries)[:0]
}

func (r *Recorder) record(level LogLevel, err error, msg string, fields []interface{}) {
	m := make(map[string]interface{})
	for _, list := range [][]interface{}{r.fields, fields} {
		for i := 0; i+1 < len(list); i += 2 {
			if key, ok := list[i].(string); ok {
				m[key] = list[i+1]
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{
		Level:     level,
		Message:   msg,
		Err:       err,
		Component: r.component,
		Fields:    m,
	})
}
