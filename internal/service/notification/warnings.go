package notification

import (
	"log/slog"
	"sync"
	"time"
)

// Warning is a non-fatal problem shown to the user
type Warning struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Warnings logs every warning and keeps the most recent ones for display
type Warnings struct {
	logger *slog.Logger
	keep   int
	now    func() time.Time

	mu     sync.Mutex
	recent []Warning
}

// NewWarnings keeps the last keep warnings; keep <= 0 means 20.
func NewWarnings(logger *slog.Logger, keep int) *Warnings {
	if logger == nil {
		logger = slog.Default()
	}
	if keep <= 0 {
		keep = 20
	}
	return &Warnings{logger: logger, keep: keep, now: time.Now}
}

func (w *Warnings) Warn(message string) {
	w.logger.Warn(message, "surface", "toast")

	w.mu.Lock()
	defer w.mu.Unlock()
	w.recent = append(w.recent, Warning{Message: message, At: w.now()})
	if len(w.recent) > w.keep {
		w.recent = append([]Warning(nil), w.recent[len(w.recent)-w.keep:]...)
	}
}

// Recent returns the retained warnings, oldest first
func (w *Warnings) Recent() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.recent...)
}
