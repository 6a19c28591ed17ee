package tests

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/logger"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(b)
}

func TestNew_CreatesLogFileAndWrites(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "http.log")

	l := logger.New(logger.Options{Dir: dir})
	// пишем лог
	l.Info("test message")
	// закрываем буферы zap
	_ = l.Sync()

	// проверяем, что файл создан
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log file to exist at %q, got error: %v", logPath, err)
	}

	s := readLog(t, logPath)
	if !regexp.MustCompile(`\btest message\b`).MatchString(s) {
		t.Fatalf("expected log to contain message, got: %q", s)
	}

	// проверяем формат времени: "HH:MM:SS DD.MM.YYYY"
	timeRe := regexp.MustCompile(`\b\d{2}:\d{2}:\d{2} \d{2}\.\d{2}\.\d{4}\b`)
	if !timeRe.MatchString(s) {
		t.Fatalf("expected custom time format (HH:MM:SS DD.MM.YYYY), got: %q", s)
	}
}

func TestHTTPLogger_LogRequest_WritesStructuredFields(t *testing.T) {
	dir := t.TempDir()

	l := logger.New(logger.Options{Dir: dir})
	l.LogRequest("POST", "/auth", 429, 17, 0.5463)
	_ = l.Sync()

	s := readLog(t, filepath.Join(dir, "http.log"))

	// проверяем наличие ключевых полей
	mustContain := []string{
		"HTTP request",
		"method", "POST",
		"uri", "/auth",
		"status", "429",
		"response_size", "17",
		"duration_ms",
	}
	for _, sub := range mustContain {
		if !strings.Contains(s, sub) {
			t.Fatalf("expected log to contain %q, got: %q", sub, s)
		}
	}
}

// JSON формат: каждая строка - отдельный объект с полями выдачи токена
func TestHTTPLogger_LogIssue_JSON(t *testing.T) {
	dir := t.TempDir()

	l := logger.New(logger.Options{Dir: dir, File: "issue.log", Format: "json"})
	l.LogIssue("kid-1", "sampleUser", "10.0.0.1", true)
	_ = l.Sync()

	line := strings.TrimSpace(readLog(t, filepath.Join(dir, "issue.log")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", line, err)
	}
	if entry["msg"] != "token issued" || entry["kid"] != "kid-1" || entry["expired"] != true {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

// Уровень warn отсекает info
func TestNew_LevelFilter(t *testing.T) {
	dir := t.TempDir()

	l := logger.New(logger.Options{Dir: dir, Level: "warn"})
	l.Info("quiet")
	l.Warn("loud")
	_ = l.Sync()

	s := readLog(t, filepath.Join(dir, "http.log"))
	if strings.Contains(s, "quiet") {
		t.Fatalf("info line must be filtered, got: %q", s)
	}
	if !strings.Contains(s, "loud") {
		t.Fatalf("warn line missing, got: %q", s)
	}
}
