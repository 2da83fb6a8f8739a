package utils

import (
	"testing"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestAuth_CheckPermission(t *testing.T) {
	auth := NewAuth(models.CommandsConfig{Auth: models.AuthConfig{
		Developers:  []string{"dev"},
		AdminsRoles: []string{"admins"},
	}})

	member := func(userID string, roles ...string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: &discordgo.User{ID: userID}, Roles: roles},
		}}
	}
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "dev"}}}

	tests := []struct {
		name  string
		i     *discordgo.InteractionCreate
		level string
		want  bool
	}{
		{"developer may run admin commands", member("dev"), LevelAdmin, true},
		{"admin role may run admin commands", member("u1", "admins"), LevelAdmin, true},
		{"plain member may not run admin commands", member("u1", "other"), LevelAdmin, false},
		{"admin is not a developer", member("u1", "admins"), LevelDeveloper, false},
		{"anyone is a guest", member("u1"), LevelGuest, true},
		{"unknown level is denied", member("dev"), "owner", false},
		{"developer in direct messages", dm, LevelDeveloper, true},
		{"developer may run admin commands in direct messages", dm, LevelAdmin, true},
		{"no author", &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}, LevelGuest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.CheckPermission(tt.i, tt.level))
		})
	}
}

func TestAuth_IsGuest(t *testing.T) {
	assert.True(t, NewAuth(models.CommandsConfig{Auth: models.AuthConfig{Guest: []string{"0"}}}).IsGuest("anyone"))
	assert.True(t, NewAuth(models.CommandsConfig{Auth: models.AuthConfig{Guest: []string{"u1"}}}).IsGuest("u1"))
	assert.False(t, NewAuth(models.CommandsConfig{}).IsGuest("u1"))
}
