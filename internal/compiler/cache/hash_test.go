package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		expected string
	}{
		{
			name:     "empty content",
			content:  []byte(""),
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "simple content",
			content:  []byte("hello world"),
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashContent(tt.content); got != tt.expected {
				t.Errorf("HashContent() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestHashFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "model.hcl")
	content := `class "my::A" {}`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	hash, err := HashFile(tmpFile)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}
	if hash != HashContent([]byte(content)) {
		t.Errorf("HashFile() and HashContent() produced different hashes for same content")
	}

	if err := os.WriteFile(tmpFile, []byte(content+"\n"), 0644); err != nil {
		t.Fatalf("Failed to modify temp file: %v", err)
	}
	modified, err := HashFile(tmpFile)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}
	if modified == hash {
		t.Errorf("HashFile() returned same hash after modification")
	}
}

func TestHashFile_NotFound(t *testing.T) {
	if _, err := HashFile("/nonexistent/model.hcl"); err == nil {
		t.Errorf("HashFile() should return error for non-existent file")
	}
}

func TestSourceHashes(t *testing.T) {
	hashes := NewSourceHashes()
	content := []byte(`class "my::A" {}`)

	if !hashes.Changed("a.hcl", content) {
		t.Errorf("unknown source should be changed")
	}

	hash := hashes.Record("a.hcl", content)
	if got, ok := hashes.Get("a.hcl"); !ok || got != hash {
		t.Errorf("Get() = %s, %v; want %s, true", got, ok, hash)
	}
	if hashes.Changed("a.hcl", content) {
		t.Errorf("recorded content should not be changed")
	}
	if !hashes.Changed("a.hcl", []byte(`class "my::B" {}`)) {
		t.Errorf("different content should be changed")
	}

	hashes.Forget("a.hcl")
	if hashes.Len() != 0 {
		t.Errorf("Len() = %d after Forget, want 0", hashes.Len())
	}
	if !hashes.Changed("a.hcl", content) {
		t.Errorf("forgotten source should be changed")
	}
}
