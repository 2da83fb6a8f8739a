package utils

import (
	"slices"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
)

// Permission levels of commands.
const (
	LevelDeveloper = "developer"
	LevelAdmin     = "admin"
	LevelGuest     = "guest"
)

// Auth provides methods for authorization checks.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth creates a new Auth instance from the commands configuration.
func NewAuth(config models.CommandsConfig) *Auth {
	return &Auth{config: config}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.config.Auth.Developers, userID)
}

// IsAdmin checks if a member has an admin role.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, roleID := range member.Roles {
		if slices.Contains(a.config.Auth.AdminsRoles, roleID) {
			return true
		}
	}
	return false
}

// IsGuest checks if a user is a guest. A "0" entry opens guest commands to everyone.
func (a *Auth) IsGuest(userID string) bool {
	return slices.Contains(a.config.Auth.Guest, "0") || slices.Contains(a.config.Auth.Guest, userID)
}

// CheckPermission checks if the author of the interaction has the required level.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	var user *discordgo.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		user = i.Member.User
	case i.User != nil:
		user = i.User
	default:
		return false
	}

	switch requiredLevel {
	case LevelDeveloper:
		return a.IsDeveloper(user.ID)
	case LevelAdmin:
		return a.IsDeveloper(user.ID) || a.IsAdmin(i.Member)
	case LevelGuest:
		return true
	default:
		return false
	}
}
