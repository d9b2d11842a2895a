package security

import (
	"errors"
	"testing"
)

func TestValidateExportPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "valid simple filename", path: "stage.png", wantErr: nil},
		{name: "valid filename with subdirectory", path: "exports/stage.png", wantErr: nil},
		{name: "path traversal with ..", path: "../stage.png", wantErr: ErrPathTraversal},
		{name: "path traversal in middle", path: "foo/../../../etc/passwd", wantErr: ErrPathTraversal},
		{name: "absolute path unix", path: "/etc/passwd", wantErr: ErrAbsolutePath},
		{name: "windows reserved name CON", path: "CON.txt", wantErr: ErrReservedName},
		{name: "windows reserved name PRN", path: "prn.png", wantErr: ErrReservedName},
		{name: "windows reserved name NUL", path: "nul", wantErr: ErrReservedName},
		{name: "windows reserved name LPT1", path: "lpt1.doc", wantErr: ErrReservedName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExportPath(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateExportPath(%q) error = %v, wantErr nil", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExportPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExportPath_LeadingHyphen(t *testing.T) {
	if err := ValidateExportPath("-stage.png"); err == nil {
		t.Error("ValidateExportPath(-stage.png) should reject a leading hyphen")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "normal filename", input: "stage.png", expected: "stage.png"},
		{name: "filename with slashes", input: "foo/bar.png", expected: "foo-bar.png"},
		{name: "filename with backslashes", input: "foo\\bar.png", expected: "foo-bar.png"},
		{name: "leading dots removed", input: "..hidden.png", expected: "hidden.png"},
		{name: "leading hyphens removed", input: "--flag.png", expected: "flag.png"},
		{name: "trailing dots removed", input: "file.png...", expected: "file.png"},
		{name: "special characters removed", input: "file<name>:with*bad?chars.png", expected: "filename-withbadchars.png"},
		{name: "windows reserved name gets underscore", input: "CON.txt", expected: "CON.txt_"},
		{name: "empty becomes design", input: "...", expected: "design"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTitleSlug(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Neon Cathedral", "neon-cathedral"},
		{"  Midnight   Bloom  ", "midnight-bloom"},
		{"A/B: Test", "a-b--test"},
		{"", "design"},
	}

	for _, tt := range tests {
		if got := TitleSlug(tt.title); got != tt.expected {
			t.Errorf("TitleSlug(%q) = %q, want %q", tt.title, got, tt.expected)
		}
	}
}
