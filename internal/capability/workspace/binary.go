package workspace

import "bytes"

// sampleSize matches the number of bytes git inspects.
const sampleSize = 8000

// isBinary looks for a NUL byte in the head of content. UTF-16 and UTF-32
// byte order marks are treated as text.
func isBinary(content []byte) bool {
	switch {
	case bytes.HasPrefix(content, []byte{0xFF, 0xFE}), bytes.HasPrefix(content, []byte{0xFE, 0xFF}):
		return false
	case bytes.HasPrefix(content, []byte{0x00, 0x00, 0xFE, 0xFF}):
		return false
	}
	return bytes.IndexByte(content[:min(len(content), sampleSize)], 0) >= 0
}
