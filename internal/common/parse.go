package common

import (
	"fmt"
	"strconv"
	"strings"
)

const bytesInMB = 1024 * 1024

// ParseUint64orHex parses a decimal or 0x-prefixed hex string. A nil input yields zero.
func ParseUint64orHex(val *string) (uint64, error) {
	if val == nil {
		return 0, nil
	}

	s := strings.TrimSpace(*val)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}

	return strconv.ParseUint(s, 10, 64)
}

// ToLowerWithTrim lowercases s and strips surrounding whitespace.
func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BytesToMB converts a byte count to whole megabytes.
func BytesToMB(b uint64) uint64 {
	return b / bytesInMB
}
