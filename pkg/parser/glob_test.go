package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExpandGlobs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "test.log")
	file := filepath.Join(dir, "test.log")

	result, err := ExpandGlobs([]string{file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != file {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, file)
	}
}

func TestExpandGlobs_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.log", "a.log", "b.txt")

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}

	want := []string{filepath.Join(dir, "a.log"), filepath.Join(dir, "c.log")}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("ExpandGlobs() = %v, want %v", result, want)
	}
}

func TestExpandGlobs_KeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.log", "b.log", "z.log")

	patterns := []string{
		filepath.Join(dir, "z.log"),
		filepath.Join(dir, "[ab].log"),
	}
	result, err := ExpandGlobs(patterns)
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "z.log"),
		filepath.Join(dir, "a.log"),
		filepath.Join(dir, "b.log"),
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("ExpandGlobs() = %v, want %v", result, want)
	}
}

func TestExpandGlobs_NoMatch(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	// Should return the pattern as-is when no match
	if len(result) != 1 || result[0] != pattern {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, pattern)
	}
}

func TestExpandGlobs_Deduplication(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "test.log")
	file := filepath.Join(dir, "test.log")

	result, err := ExpandGlobs([]string{file, filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ExpandGlobs() returned %d files, want 1 (deduplicated)", len(result))
	}
}

func TestExpandGlobs_Stdin(t *testing.T) {
	result, err := ExpandGlobs([]string{StdinName})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != StdinName {
		t.Errorf("ExpandGlobs() = %v, want [-]", result)
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	if err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestExpandGlobs_EmptyInput(t *testing.T) {
	result, err := ExpandGlobs([]string{})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ExpandGlobs([]) = %v, want empty", result)
	}
}

func TestSplitExisting(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "here.log")
	here := filepath.Join(dir, "here.log")
	gone := filepath.Join(dir, "gone.log")

	found, missing := SplitExisting([]string{gone, here, StdinName, dir})

	if want := []string{here, StdinName}; !reflect.DeepEqual(found, want) {
		t.Errorf("found = %v, want %v", found, want)
	}
	if want := []string{gone, dir}; !reflect.DeepEqual(missing, want) {
		t.Errorf("missing = %v, want %v", missing, want)
	}
}
