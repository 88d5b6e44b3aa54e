// Package logx configures logrus for terminals and for workflow runners.
package logx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Options controls Setup.
type Options struct {
	Out io.Writer
	// Actions renders entries as workflow commands.
	Actions bool
	Verbose bool
}

// Setup configures the standard logrus logger. Under Actions debug entries
// are always emitted; the runner hides them unless step debugging is on.
func Setup(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	if opts.Actions {
		log.SetFormatter(&ActionsFormatter{})
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// OpenFile creates a timestamped log file inside dir and tees the standard
// logger into it. Close the returned closer when logging is done.
func OpenFile(dir string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	file, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	log.AddHook(&fileHook{out: file, formatter: &log.TextFormatter{DisableColors: true, FullTimestamp: true}})
	return file, nil
}

type fileHook struct {
	out       io.Writer
	formatter log.Formatter
}

func (h *fileHook) Levels() []log.Level { return log.AllLevels }

func (h *fileHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

// ActionsFormatter writes entries as GitHub workflow commands.
type ActionsFormatter struct{}

func (f *ActionsFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer

	switch entry.Level {
	case log.TraceLevel, log.DebugLevel:
		b.WriteString("::debug::")
	case log.WarnLevel:
		b.WriteString("::warning::")
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		b.WriteString("::error::")
	}

	msg := entry.Message
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg += fmt.Sprintf(" %s=%v", k, entry.Data[k])
	}

	if entry.Level == log.InfoLevel {
		b.WriteString(msg)
	} else {
		b.WriteString(escapeData(msg))
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}
