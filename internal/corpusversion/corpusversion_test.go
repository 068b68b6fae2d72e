package corpusversion

import (
	"testing"

	"github.com/orizon-lang/orizon-fuzz/internal/runtime/vfs"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOS()

	if err := Write(fs, dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(fs, dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got != Current {
		t.Fatalf("got %q, want %q", got, Current)
	}
}

func TestCheckAcceptsCompatiblePatchBump(t *testing.T) {
	ok, err := Check("1.0.5")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if !ok {
		t.Fatalf("expected 1.0.5 to satisfy %s", SupportedRange)
	}
}

func TestCheckRejectsIncompatibleMajorBump(t *testing.T) {
	ok, err := Check("2.0.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if ok {
		t.Fatalf("expected 2.0.0 to violate %s", SupportedRange)
	}
}

func TestEnsureCompatibleWritesVersionWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOS()

	if err := EnsureCompatible(fs, dir); err != nil {
		t.Fatalf("EnsureCompatible: %v", err)
	}

	got, err := Read(fs, dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got != Current {
		t.Fatalf("got %q, want %q", got, Current)
	}
}

func TestEnsureCompatibleOnMemFS(t *testing.T) {
	fs := vfs.NewMem()

	if err := EnsureCompatible(fs, "pool"); err != nil {
		t.Fatalf("EnsureCompatible: %v", err)
	}

	got, err := Read(fs, "pool")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got != Current {
		t.Fatalf("got %q, want %q", got, Current)
	}
}

func TestEnsureCompatibleRejectsIncompatibleExistingVersion(t *testing.T) {
	dir := t.TempDir()
	fsys := vfs.NewOS()

	f, err := fsys.Create(vfs.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.Write([]byte("2.0.0\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f.Close()

	if err := EnsureCompatible(fsys, dir); err == nil {
		t.Fatalf("expected incompatible version to error")
	}
}
