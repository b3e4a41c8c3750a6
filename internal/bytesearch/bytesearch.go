package bytesearch

import (
	"bytes"
	"fmt"
)

// Index returns the offset of the first occurrence of needle in haystack[:n],
// or -1 if there is none.
// Index panics if needle is empty or n is outside [0, len(haystack)].
func Index(haystack, needle []byte, n int) int {
	return IndexAligned(haystack, needle, n, 1)
}

// IndexAligned is like Index but only reports matches whose offset is a multiple of unit.
// Multi-byte text encodings use it so that a newline is never matched across two code units.
func IndexAligned(haystack, needle []byte, n, unit int) int {
	checkArgs(haystack, needle, n)
	if unit <= 0 {
		unit = 1
	}

	if len(needle) > n {
		return -1
	}

	first := needle[0]
	last := n - len(needle)
	for i := 0; i <= last; {
		j := bytes.IndexByte(haystack[i:last+1], first)
		if j < 0 {
			return -1
		}
		i += j

		if i%unit == 0 && bytes.Equal(haystack[i+1:i+len(needle)], needle[1:]) {
			return i
		}
		i++
	}

	return -1
}

func checkArgs(haystack, needle []byte, n int) {
	if len(needle) == 0 {
		panic("bytesearch: empty needle")
	}
	if n < 0 || n > len(haystack) {
		panic(fmt.Sprintf("bytesearch: search length %d out of range [0, %d]", n, len(haystack)))
	}
}
