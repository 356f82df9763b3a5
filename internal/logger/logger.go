package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

func ParseLevel(value string) Level {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debug(msg string, keyvals ...any) {
	if Level(level.Load()) > LevelDebug {
		return
	}
	log.Printf("[DEBUG] %s%s", msg, formatFields(keyvals))
}

func Info(msg string, keyvals ...any) {
	if Level(level.Load()) > LevelInfo {
		return
	}
	log.Printf("[INFO] %s%s", msg, formatFields(keyvals))
}

func Error(err error, msg string, keyvals ...any) {
	if err != nil {
		log.Printf("[ERROR] %s: %v%s", msg, err, formatFields(keyvals))
		return
	}
	log.Printf("[ERROR] %s%s", msg, formatFields(keyvals))
}

func formatFields(keyvals []any) string {
	if len(keyvals) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(keyvals); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(keyvals) {
			fmt.Fprintf(&b, "%v=%v", keyvals[i], keyvals[i+1])
		} else {
			fmt.Fprintf(&b, "%v=?", keyvals[i])
		}
	}
	return b.String()
}
