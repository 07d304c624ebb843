// Package notify delivers short-lived user notices.
//
// A loading notice returns an ID; passing that ID to Success or Error
// resolves it in place. ID zero means a standalone notice.
package notify

import (
	"fmt"
	"io"
	"sync"
)

type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type ID int64

type Notifier interface {
	Loading(msg string) ID
	Success(id ID, msg string)
	Error(id ID, msg string)
	Info(msg string)
}

// Writer prints notices as single lines.
type Writer struct {
	mu   sync.Mutex
	out  io.Writer
	next ID
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Loading(msg string) ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	fmt.Fprintf(w.out, "... %s\n", msg)
	return w.next
}

func (w *Writer) Success(_ ID, msg string) {
	w.print("ok", msg)
}

func (w *Writer) Error(_ ID, msg string) {
	w.print("error", msg)
}

func (w *Writer) Info(msg string) {
	w.print("info", msg)
}

func (w *Writer) print(tag, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "[%s] %s\n", tag, msg)
}

type Message struct {
	ID    ID
	Level Level
	Text  string
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	next     ID
}

func (r *Recorder) Loading(msg string) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.messages = append(r.messages, Message{ID: r.next, Level: LevelLoading, Text: msg})
	return r.next
}

func (r *Recorder) Success(id ID, msg string) {
	r.add(id, LevelSuccess, msg)
}

func (r *Recorder) Error(id ID, msg string) {
	r.add(id, LevelError, msg)
}

func (r *Recorder) Info(msg string) {
	r.add(0, LevelInfo, msg)
}

func (r *Recorder) add(id ID, level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{ID: id, Level: level, Text: msg})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent notice of the given level.
func (r *Recorder) Last(level Level) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Level == level {
			return r.messages[i], true
		}
	}
	return Message{}, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Loading(string) ID { return 0 }
func (Discard) Success(ID, string) {}
func (Discard) Error(ID, string) {}
func (Discard) Info(string) {}
