package browse

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/actionmgr/internal/config"
	"nathanbeddoewebdev/actionmgr/internal/tui"
)

func TestFileLogger(t *testing.T) {
	cmd := NewCommand()
	cmd.Flags().String("log-level", "", "")

	logger, closeLog, err := fileLogger(cmd, &config.Config{})
	if err != nil {
		t.Fatalf("fileLogger: %v", err)
	}
	closeLog()
	if logger.Enabled() {
		t.Error("without --log-file the logger must discard")
	}

	path := filepath.Join(t.TempDir(), "browse.log")
	if err := cmd.Flags().Set("log-file", path); err != nil {
		t.Fatal(err)
	}
	logger, closeLog, err = fileLogger(cmd, &config.Config{LogLevel: "debug"})
	if err != nil {
		t.Fatalf("fileLogger: %v", err)
	}
	logger.V(2).Info("controller pushed", "controller", "controller_1")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"controller"="controller_1"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestRunBrowse_Rejections(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"3", "--resume"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--resume") {
		t.Errorf("error = %v, want the --resume conflict", err)
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, &tui.AppResult{Opened: []string{"https://example.com/docs"}, RedirectURL: "/web/login"})
	want := "Opened: https://example.com/docs\nRedirected to /web/login\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
