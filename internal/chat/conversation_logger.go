package chat

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yuh2k/FAQ-system/internal/compose"
)

// ConversationLogEvent is one NDJSON line of the transcript log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	SessionID  string         `json:"session_id"`
	Contact    string         `json:"contact,omitempty"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records chat transcripts.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// ConversationLogConfig configures the transcript log.
type ConversationLogConfig struct {
	Enabled    bool
	Path       string
	QueueSize  int
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

type fileConversationLogger struct {
	out     *lumberjack.Logger
	queue   chan ConversationLogEvent
	done    chan struct{}
	log     *slog.Logger
	dropped atomic.Int64

	mu     sync.RWMutex // guards closed against sends on a closed queue
	closed bool
}

// NewConversationLogger returns a logger writing NDJSON through a bounded
// queue into a rotating file. A disabled config yields a no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	l := &fileConversationLogger{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		queue: make(chan ConversationLogEvent, cfg.QueueSize),
		done:  make(chan struct{}),
		log:   logger,
	}
	go l.run()
	return l, nil
}

// Log enqueues event. A full queue drops the event instead of blocking.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- event:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.log.Warn("Conversation log queue full, dropping events", "dropped", n)
		}
	}
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	enc := json.NewEncoder(l.out)
	for event := range l.queue {
		if event.Content == "" {
			event.Content = cleanForReadability(event.ContentRaw)
		}
		if err := enc.Encode(event); err != nil {
			l.log.Warn("failed to write conversation log event", "session_id", event.SessionID, "error", err)
		}
	}
}

// Close drains the queue and closes the file.
func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return l.out.Close()
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanForReadability drops the choice button block and collapses
// whitespace so transcripts read as plain text.
func cleanForReadability(raw string) string {
	visible, options := compose.ParseChoices(raw)
	if len(options) > 0 {
		labels := make([]string, len(options))
		for i, o := range options {
			labels[i] = "[" + o.Label + "]"
		}
		visible += " " + strings.Join(labels, " ")
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(visible, " "))
}
