package logging

import (
	"sync"
)

// MemoryLogger keeps entries in memory. Tests use it to check that absorbed
// errors were reported.
type MemoryLogger struct {
	mu      *sync.Mutex
	entries *[]RecordedEntry
	fields  []Field
	level   *levelVar
}

// RecordedEntry is one captured log line
type RecordedEntry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// NewMemoryLogger creates a MemoryLogger capturing every level
func NewMemoryLogger() *MemoryLogger {
	entries := make([]RecordedEntry, 0)
	return &MemoryLogger{
		mu:      &sync.Mutex{},
		entries: &entries,
		level:   &levelVar{level: DebugLevel},
	}
}

func (m *MemoryLogger) record(level Level, msg string, fields []Field) {
	if level < m.level.get() {
		return
	}
	fm := make(map[string]any, len(m.fields)+len(fields))
	for _, f := range m.fields {
		fm[f.Key] = f.Value
	}
	for _, f := range fields {
		fm[f.Key] = f.Value
	}
	m.mu.Lock()
	*m.entries = append(*m.entries, RecordedEntry{Level: level, Message: msg, Fields: fm})
	m.mu.Unlock()
}

func (m *MemoryLogger) Debug(msg string, fields ...Field) { m.record(DebugLevel, msg, fields) }
func (m *MemoryLogger) Info(msg string, fields ...Field)  { m.record(InfoLevel, msg, fields) }
func (m *MemoryLogger) Warn(msg string, fields ...Field)  { m.record(WarnLevel, msg, fields) }
func (m *MemoryLogger) Error(msg string, fields ...Field) { m.record(ErrorLevel, msg, fields) }

// With returns a child that appends to the same entry list
func (m *MemoryLogger) With(fields ...Field) Logger {
	nf := make([]Field, len(m.fields)+len(fields))
	copy(nf, m.fields)
	copy(nf[len(m.fields):], fields)
	return &MemoryLogger{mu: m.mu, entries: m.entries, fields: nf, level: m.level}
}

func (m *MemoryLogger) SetLevel(level Level) { m.level.set(level) }
func (m *MemoryLogger) GetLevel() Level      { return m.level.get() }

// Entries returns a copy of everything logged so far
func (m *MemoryLogger) Entries() []RecordedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedEntry, len(*m.entries))
	copy(out, *m.entries)
	return out
}

// Count returns how many entries at the given level carry msg
func (m *MemoryLogger) Count(level Level, msg string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			n++
		}
	}
	return n
}
