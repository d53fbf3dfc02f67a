package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a one-line loading indicator for non-TUI commands.
type Spinner struct {
	out  io.Writer
	mu   sync.Mutex
	msg  string
	run  bool
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpinner creates a spinner that draws on stderr, leaving stdout for
// command output.
func NewSpinner(msg string) *Spinner { return NewSpinnerTo(os.Stderr, msg) }

// NewSpinnerTo creates a spinner drawing on w.
func NewSpinnerTo(w io.Writer, msg string) *Spinner {
	return &Spinner{
		out:  w,
		msg:  msg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() *Spinner {
	s.mu.Lock()
	s.run = true
	s.mu.Unlock()
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			fmt.Fprintf(s.out, "\r%s  %s", StyleChain.Render(spinnerFrames[i%len(spinnerFrames)]), msg)

			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-70s\r", "")
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Update replaces the message while the spinner runs.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the spinner and clears its line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.mu.Lock()
		run := s.run
		s.mu.Unlock()
		if run {
			<-s.done
		}
	})
}

// StopWithMsg halts the spinner and prints a final line.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, msg)
}
