package abi

import (
	"unicode/utf16"
)

// Capacities of the fixed text fields, in UTF-16 code units including the
// terminating NUL.
const (
	MonitorNameLen = 32
	AppNameLen     = 260
	TitleLen       = 256
)

// PutText encodes s into dst as NUL-terminated UTF-16, truncating so the
// terminator always fits. A surrogate pair is never split; if only its
// first half would fit, both halves are dropped. Unused units are zeroed.
func PutText(dst []uint16, s string) {
	if len(dst) == 0 {
		return
	}
	units := utf16.Encode([]rune(s))
	limit := len(dst) - 1
	if len(units) > limit {
		units = units[:limit]
		if n := len(units); n > 0 && isHighSurrogate(units[n-1]) {
			units = units[:n-1]
		}
	}
	n := copy(dst, units)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// Text decodes a NUL-terminated UTF-16 field.
func Text(src []uint16) string {
	for i, u := range src {
		if u == 0 {
			return string(utf16.Decode(src[:i]))
		}
	}
	return string(utf16.Decode(src))
}

func isHighSurrogate(u uint16) bool {
	return u >= 0xd800 && u < 0xdc00
}
