package command

import "github.com/bwmarrin/discordgo"

// Values of the backup command's mode option.
const (
	BackupModeFull   = "full"
	BackupModeResync = "resync"
)

// BackupCommand defines the structure for the /backup command.
type BackupCommand struct{}

// Definition returns the application command definition.
func (c *BackupCommand) Definition() *discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	return &discordgo.ApplicationCommand{
		Name:                     "backup",
		Description:              "Back up every guild the bot is in",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "mode",
				Description: "What to back up (defaults to a full backup)",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{
						Name:  "Full Backup",
						Value: BackupModeFull,
					},
					{
						Name:  "Stale Channel Resync",
						Value: BackupModeResync,
					},
				},
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
