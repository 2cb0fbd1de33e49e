package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Input validation and sanitization utilities

// ValidateImagePath checks an image reference before it reaches the loader.
// Existence, type and size are the loader's job.
func ValidateImagePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("image_path is required")
	}

	// Block dangerous patterns
	dangerous := []string{"$(", "`", "|", ";", "\x00", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(path, d) {
			return fmt.Errorf("invalid characters in path")
		}
	}

	// Clean the path, then block traversal attempts
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected")
		}
	}

	// Block absolute paths to sensitive directories
	cleaned := filepath.ToSlash(filepath.Clean(path))
	blocked := []string{"/etc", "/proc", "/sys", "/dev", "/root", "/boot"}
	for _, b := range blocked {
		if cleaned == b || strings.HasPrefix(cleaned, b+"/") {
			return fmt.Errorf("access to %s is not allowed", b)
		}
	}
	return nil
}

// ValidateID parses a positive numeric identifier named name.
func ValidateID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// ValidateOptionalID is ValidateID where an empty value means 0.
func ValidateOptionalID(name, raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return ValidateID(name, raw)
}

var patientCodePattern = regexp.MustCompile(`^[\p{L}\p{N}._/-]{1,64}$`)

// ValidatePatientCode checks the external patient identifier format.
func ValidatePatientCode(code string) error {
	if !patientCodePattern.MatchString(code) {
		return fmt.Errorf("invalid patient code format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates search limits
func ValidateLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500 // max limit
	}
	return limit
}
