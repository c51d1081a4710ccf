package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out", "patients_clean.csv")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, err = %v", b, err)
	}
	info, err := os.Stat(p)
	if err != nil || info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v, err = %v", info.Mode(), err)
	}
	left, _ := filepath.Glob(filepath.Join(dir, "out", "*.tmp"))
	if len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestWriteJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.json")
	if err := WriteJSON(p, map[string]int{"rows": 350}); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "{\n  \"rows\": 350\n}\n" {
		t.Fatalf("json = %q", b)
	}
}

func TestFindDataDir(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"patients.csv", "treatments.csv"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("given_name\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	// A closer directory with only one of the files is skipped.
	if err := os.WriteFile(filepath.Join(root, "a", "patients.csv"), []byte("given_name\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindDataDir(nested, "patients.csv", "treatments.csv")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != root {
		t.Fatalf("got %s, want %s", got, root)
	}
	got, err = FindDataDir(filepath.Join(root, "patients.csv"), "patients.csv")
	if err != nil || got != root {
		t.Fatalf("file start: got %s, %v", got, err)
	}
	if _, err := FindDataDir(nested, "patients.csv", "missing.csv"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := FindDataDir(nested); err == nil {
		t.Fatalf("expected error without files")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 350})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"rows\": 350\n}" {
		t.Fatalf("json = %s", b)
	}
}
