package ui

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner(t *testing.T) {
	var out syncBuffer
	s := NewSpinnerTo(&out, "Reading contract state").Start()
	time.Sleep(100 * time.Millisecond)
	s.Update("Reading balances")
	time.Sleep(100 * time.Millisecond)
	s.StopWithMsg("done")
	s.Stop()

	got := out.String()
	assert.Contains(t, got, "Reading contract state")
	assert.Contains(t, got, "Reading balances")
	assert.Contains(t, got, "done\n")
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := NewSpinnerTo(&syncBuffer{}, "idle")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked")
	}
}
