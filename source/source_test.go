package source

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeFromTime(t *testing.T) {
	at := time.Date(2016, 4, 30, 11, 18, 25, 796_000_000, time.UTC)

	after := SnowflakeFromTime(at)
	id, err := strconv.ParseInt(after, 10, 64)
	require.NoError(t, err)

	// The first snowflake of the millisecond is the next ID.
	created, err := discordgo.SnowflakeTimestamp(strconv.FormatInt(id+1, 10))
	require.NoError(t, err)
	assert.True(t, created.Equal(at))

	before, err := discordgo.SnowflakeTimestamp(after)
	require.NoError(t, err)
	assert.True(t, before.Before(at))

	assert.Equal(t, "0", SnowflakeFromTime(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func restErr(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		forbidden bool
	}{
		{name: "unknown channel", err: restErr(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), notFound: true},
		{name: "missing access", err: restErr(http.StatusForbidden, discordgo.ErrCodeMissingAccess), forbidden: true},
		{name: "missing permissions", err: restErr(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), forbidden: true},
		{name: "wrapped in fetch error", err: fetchError("channel", "3", restErr(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)), notFound: true},
		{name: "state miss", err: discordgo.ErrStateNotFound, notFound: true},
		{name: "server error", err: restErr(http.StatusInternalServerError, 0)},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.forbidden, IsForbidden(tt.err))
		})
	}
}

func TestFetchError(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("backing up channel: %w", fetchError("messages of channel", "3", cause))

	assert.True(t, IsFetchError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to fetch messages of channel 3")

	assert.NoError(t, fetchError("channel", "3", nil))
	assert.False(t, IsFetchError(cause))
}
