package store

import "fmt"

// MaxNameLength bounds the Job name column (VARCHAR(255) in the schema).
const MaxNameLength = 255

// MaxPayloadBytes is the serialized JSON payload size ceiling (spec.md §3, §4.4 step 3).
const MaxPayloadBytes = 1 << 20 // 1 MiB

// ValidateName checks that a job name is non-empty and within MaxNameLength.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name too long: %d chars (max %d)", len(name), MaxNameLength)
	}
	return nil
}

// ValidatePayloadSize checks a serialized payload against MaxPayloadBytes.
// Exactly MaxPayloadBytes is accepted; one byte over is rejected (spec.md §8).
func ValidatePayloadSize(serialized []byte) error {
	if len(serialized) > MaxPayloadBytes {
		return fmt.Errorf("payload too large: %d bytes (max %d)", len(serialized), MaxPayloadBytes)
	}
	return nil
}
