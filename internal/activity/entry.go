package activity

import (
	"strings"
	"time"
)

// Level is the severity shelf infers for a log line.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time // zero for continuation lines
	Source  string    // "api", "session", "loan", ...
	Message string
	Level   Level
}

const stampLayout = "2006/01/02 15:04:05"

// Parse splits a line written by the standard logger into its parts. Lines
// without a timestamp come back with the whole text as the message.
func Parse(line string) Entry {
	entry := Entry{Message: line}
	if len(line) > len(stampLayout) && line[len(stampLayout)] == ' ' {
		if ts, err := time.ParseInLocation(stampLayout, line[:len(stampLayout)], time.Local); err == nil {
			entry.Time = ts
			entry.Message = line[len(stampLayout)+1:]
		}
	}
	entry.Source = source(entry.Message)
	entry.Level = level(entry.Message)
	return entry
}

// ParseAll parses lines in order.
func ParseAll(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		out = append(out, Parse(line))
	}
	return out
}

func source(msg string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(msg), " ")
	word = strings.TrimSuffix(word, ":")
	switch word {
	case "api", "session", "loan", "book", "user", "poller":
		return word
	}
	return ""
}

func level(msg string) Level {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "failed"), strings.Contains(lower, "could not"), strings.Contains(lower, "-> 5"):
		return LevelError
	case strings.Contains(lower, "expired"), strings.Contains(lower, "-> 4"):
		return LevelWarn
	}
	return LevelInfo
}
