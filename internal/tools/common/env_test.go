package common

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFileMissingIsNoop(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadEnvFileLoadsAndPreservesExisting(t *testing.T) {
	t.Setenv("EXISTING_KEY", "from-env")
	file := filepath.Join(t.TempDir(), "test.env")
	content := "# comment\nEXISTING_KEY=from-file\nNEW_KEY=hello\nQUOTED=\"x\"\nSINGLE='y'\nINVALID_LINE\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := LoadEnvFile(file); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("EXISTING_KEY"); got != "from-env" {
		t.Fatalf("expected existing var to be preserved, got %q", got)
	}
	if got := os.Getenv("NEW_KEY"); got != "hello" {
		t.Fatalf("unexpected NEW_KEY=%q", got)
	}
	if got := os.Getenv("QUOTED"); got != "x" {
		t.Fatalf("unexpected QUOTED=%q", got)
	}
	if got := os.Getenv("SINGLE"); got != "y" {
		t.Fatalf("unexpected SINGLE=%q", got)
	}
	if _, exists := os.LookupEnv("INVALID_LINE"); exists {
		t.Fatal("lines without '=' must be skipped")
	}
}

func TestLoadEnvFileOpenError(t *testing.T) {
	dir := t.TempDir()
	err := LoadEnvFile(dir)
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected path error when path is a directory, got %v", err)
	}
}

func FuzzLoadEnvFileRobustness(f *testing.F) {
	f.Add([]byte("KEY=value\nANOTHER=ok\n"))
	f.Add([]byte("INVALID_LINE\n# comment\n QUOTED = \"x\" \n"))
	f.Add([]byte("NO_EQUALS_LINE\nBROKEN"))
	f.Add(bytes.Repeat([]byte("A"), 70000))

	f.Fuzz(func(t *testing.T, content []byte) {
		if len(content) > 200000 {
			content = content[:200000]
		}

		file := filepath.Join(t.TempDir(), "fuzz.env")
		if err := os.WriteFile(file, content, 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}

		// Loading twice must behave the same: existing vars win, so the
		// second pass is a no-op and never a new failure mode.
		err1 := LoadEnvFile(file)
		err2 := LoadEnvFile(file)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("non-deterministic result: first %v, second %v", err1, err2)
		}
	})
}
