package stage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vidgate/internal/services"
	"vidgate/internal/stage"
)

func TestRequireLocalFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(good, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "existing file", path: good},
		{name: "empty path", path: "", wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "gone.mp4"), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := stage.RequireLocalFile("moderate", "load artifact", tc.path)
			if tc.wantErr {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
