package sync

import (
	"fmt"
	"strings"
)

// Delta records one changed field as old -> new.
type Delta struct {
	Field string
	Old   string
	New   string
}

func (d Delta) String() string {
	return fmt.Sprintf("%s: %s -> %s", d.Field, d.Old, d.New)
}

// Message formats follow a fixed convention so callers can partition
// results by prefix: "Info:" and "Success:" are non-errors, anything else
// is an error.

func CreatedMsg(entity, obj string) string {
	return fmt.Sprintf("Success: %s %s created", entity, obj)
}

func UpdatedMsg(entity, obj string, deltas []Delta) string {
	parts := make([]string, len(deltas))
	for i, d := range deltas {
		parts[i] = d.String()
	}
	return fmt.Sprintf("Success: %s %s updated, %s", entity, obj, strings.Join(parts, ", "))
}

func UpToDateMsg(entity, obj string) string {
	return fmt.Sprintf("Info: %s %s, already up-to-date", entity, obj)
}

func AllUpToDateMsg(entity string) string {
	return fmt.Sprintf("Info: %s, everything up-to-date", entity)
}

func ErrorMsg(entity string, err error) string {
	return fmt.Sprintf("Error: %s, %v", entity, err)
}

func RecordErrorMsg(entity, obj string, err error) string {
	return fmt.Sprintf("Error: %s %s, %v", entity, obj, err)
}

func ChunkErrorMsg(chunk []string, err error) string {
	return fmt.Sprintf("Chunk Error: %s, %v", strings.Join(chunk, ","), err)
}

// IsErrorMsg reports whether a message carries an error severity.
func IsErrorMsg(msg string) bool {
	return !strings.HasPrefix(msg, "Info:") && !strings.HasPrefix(msg, "Success:")
}
