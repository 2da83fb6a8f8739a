// Package mapper converts discordgo objects into rows of the archive.
//
// Mappers are pure: they only read fields already present on the object they are given.
package mapper

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrUnsupported is returned when an object is handed to a mapper of the wrong kind.
var ErrUnsupported = errors.New("unsupported object")

// CreatedAt returns the creation time encoded in a snowflake ID.
func CreatedAt(id string) (time.Time, error) {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	return t.UTC(), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
