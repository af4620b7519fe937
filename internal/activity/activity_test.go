package activity

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFileIsEmpty(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Read() = %v, want empty", got)
	}
}

func TestSetup_RedirectsStandardLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "shelf", "shelf.log")

	closer, err := Setup(path)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	log.Printf("loan %d returned", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines, err := Read(path, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "loan 7 returned") {
		t.Fatalf("log lines = %q, want one 'loan 7 returned' line", lines)
	}
}

func TestSetup_EmptyPathFails(t *testing.T) {
	if _, err := Setup("  "); err == nil {
		t.Fatalf("Setup() returned nil error for empty path")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		stamped bool
		source  string
		message string
		level   Level
	}{
		{
			name:    "api success",
			line:    "2026/10/18 09:15:02 api GET /api/books/ -> 200 in 12ms (request abc)",
			stamped: true,
			source:  "api",
			message: "api GET /api/books/ -> 200 in 12ms (request abc)",
			level:   LevelInfo,
		},
		{
			name:    "api rejection",
			line:    "2026/10/18 09:15:02 api POST /api/loans/ -> 400 in 8ms (request abc)",
			stamped: true,
			source:  "api",
			message: "api POST /api/loans/ -> 400 in 8ms (request abc)",
			level:   LevelWarn,
		},
		{
			name:    "session prefix",
			line:    "2026/10/18 09:15:02 session: resume failed: token expired",
			stamped: true,
			source:  "session",
			message: "session: resume failed: token expired",
			level:   LevelError,
		},
		{
			name:    "no timestamp",
			line:    "  continuation",
			message: "  continuation",
			level:   LevelInfo,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			if got.Time.IsZero() == tt.stamped {
				t.Fatalf("Time = %v, stamped = %v", got.Time, tt.stamped)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %q, want %q", got.Source, tt.source)
			}
			if got.Message != tt.message {
				t.Errorf("Message = %q, want %q", got.Message, tt.message)
			}
			if got.Level != tt.level {
				t.Errorf("Level = %v, want %v", got.Level, tt.level)
			}
		})
	}
}

func TestParse_Timestamp(t *testing.T) {
	got := Parse("2026/10/18 09:15:02 loan 3 created for book 9")
	want := time.Date(2026, 10, 18, 9, 15, 2, 0, time.Local)
	if !got.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", got.Time, want)
	}
	if got.Source != "loan" {
		t.Fatalf("Source = %q, want loan", got.Source)
	}
}
