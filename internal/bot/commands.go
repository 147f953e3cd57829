package bot

import "github.com/bwmarrin/discordgo"

var moderatorOnly = int64(discordgo.PermissionBanMembers)

func (b *Bot) registerCommands() error {
	minBypass := float64(0)
	maxBypass := float64(7)
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "freeze",
			Description:              "Lock every freezable channel",
			DefaultMemberPermissions: &moderatorOnly,
		},
		{
			Name:                     "unfreeze",
			Description:              "Unlock channels locked by freeze",
			DefaultMemberPermissions: &moderatorOnly,
		},
		{
			Name:                     "freezable",
			Description:              "Manage channels that freeze locks",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Mark a channel as freezable",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Text channel", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Stop freezing a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Text channel", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List freezable channels",
				},
			},
		},
		{
			Name:                     "raidphrase",
			Description:              "Manage phrases that ban on sight",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a raid phrase",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "phrase", Description: "Phrase to match", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "bypass", Description: "Lowest permission level that is not affected (default 5)", MinValue: &minBypass, MaxValue: maxBypass},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a raid phrase",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "phrase", Description: "Phrase to remove", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List raid phrases",
				},
			},
		},
		{
			Name:                     "raidverify",
			Description:              "Exempt a member from the same-day join check",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "verified", Description: "Set false to remove the exemption"},
			},
		},
		{
			Name:                     "spammode",
			Description:              "Also ban accounts created today during same-day raids",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "on or off",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "on", Value: "on"},
						{Name: "off", Value: "off"},
					},
				},
			},
		},
		{
			Name:                     "setchannels",
			Description:              "Set the mod reports and public log channels",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "reports", Description: "Moderator reports channel"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "log", Description: "Public mod log channel"},
			},
		},
		{
			Name:                     "cases",
			Description:              "Show a member's cases",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			},
		},
		{
			Name:                     "liftcase",
			Description:              "Lift a case",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Case id", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the case is lifted", Required: true},
			},
		},
		{
			Name:                     "raidstats",
			Description:              "Summarize raid activity",
			DefaultMemberPermissions: &moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "day or week",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
			},
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commands)
	return err
}
