// Package logx contains logging helpers built on github.com/apex/log.
package logx

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/mattn/go-colorable"
)

// Logger is the logging interface used across hotrack. The apex/log
// package-level logger and *log.Entry both satisfy it.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// DiscardLogger discards its input.
var DiscardLogger Logger = logDiscarder{}

// logDiscarder is a logger that discards its input.
type logDiscarder struct{}

// Debugf implements Logger.Debugf
func (logDiscarder) Debugf(format string, v ...interface{}) {}

// Infof implements Logger.Infof
func (logDiscarder) Infof(format string, v ...interface{}) {}

// Warnf implements Logger.Warnf
func (logDiscarder) Warnf(format string, v ...interface{}) {}

// ValidLoggerOrDefault returns logger when not nil, DiscardLogger otherwise.
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return DiscardLogger
}

// Handler implements the log handler required by github.com/apex/log. It
// prefixes every line with the time elapsed since the handler was created.
type Handler struct {
	// Writer is the underlying writer.
	Writer io.Writer

	mu    sync.Mutex
	start time.Time
}

var _ log.Handler = &Handler{}

// NewHandler creates a Handler writing to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{Writer: w, start: time.Now()}
}

// HandleLog implements log.Handler
func (h *Handler) HandleLog(e *log.Entry) (err error) {
	s := fmt.Sprintf("[%14.6f] <%s> %s", time.Since(h.start).Seconds(), e.Level, e.Message)
	if len(e.Fields) > 0 {
		s += fmt.Sprintf(": %+v", e.Fields)
	}
	s += "\n"
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.Writer.Write([]byte(s))
	return
}

// Setup installs a Handler writing to the colorable stderr and sets the
// level of the apex/log default logger.
func Setup(verbose bool) {
	log.SetHandler(NewHandler(colorable.NewColorableStderr()))
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
