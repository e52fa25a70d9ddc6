package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

const maxNameLen = 50

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_",
	"|", "_", "\n", "_", "\r", "_", "\t", "_",
)

// SanitizeFilename makes name safe as a path component. It replaces
// separators and reserved characters, caps the length at 50 runes and
// returns "unnamed" for blank input.
func SanitizeFilename(name string) string {
	result := unsafeChars.Replace(name)
	if r := []rune(result); len(r) > maxNameLen {
		result = string(r[:maxNameLen])
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return "unnamed"
	}
	return result
}

// Filename builds "<kind>_<index>_<part>_<part>.<ext>" from sanitized parts.
func Filename(kind string, index int, format Format, parts ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s_%d", kind, index)
	for _, p := range parts {
		b.WriteByte('_')
		b.WriteString(SanitizeFilename(p))
	}
	b.WriteString(format.Ext())
	return b.String()
}

// WriteFile encodes img into dir/name, creating dir if needed, and returns
// the written path.
func (e Encoder) WriteFile(dir, name string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := e.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
