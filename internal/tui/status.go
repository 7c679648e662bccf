package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusWriter keeps a one-line spinner on w while a single slow call, such
// as a catalog query, is in flight.
type StatusWriter struct {
	w       io.Writer
	message string
	start   time.Time
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewStatusWriter starts the spinner.
func NewStatusWriter(w io.Writer, msg string) *StatusWriter {
	sw := &StatusWriter{w: w, message: msg, start: time.Now(), stop: make(chan struct{})}
	sw.wg.Add(1)
	go sw.loop()
	return sw
}

// Stop erases the line and returns how long the spinner ran. Calling Stop
// again is a no-op.
func (sw *StatusWriter) Stop() time.Duration {
	sw.once.Do(func() {
		close(sw.stop)
		sw.wg.Wait()
		fmt.Fprint(sw.w, "\r\033[K")
	})
	return time.Since(sw.start)
}

func (sw *StatusWriter) loop() {
	defer sw.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
			fmt.Fprintf(sw.w, "\r\033[K%s %s %s", spinnerFrames[frame%len(spinnerFrames)], sw.message,
				DimStyle.Render("("+formatElapsed(time.Since(sw.start))+")"))
		}
	}
}

// formatElapsed renders d compactly: 850ms, 4.2s, 37s, 2m05s.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
