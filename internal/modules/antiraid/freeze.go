package antiraid

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gir-antiraid/internal/metrics"
	"gir-antiraid/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sendMessages = int64(discordgo.PermissionSendMessages)

// FreezeServer locks every freezable channel that is in its normal state
// and returns the ids that changed. Channels with any explicit send
// overwrite on either role are left alone.
func (m *Monitor) FreezeServer(ctx context.Context, guildID string) ([]string, error) {
	changed, err := m.toggleChannels(ctx, guildID, true)
	if err != nil {
		return nil, err
	}
	metrics.ChannelsFrozenTotal.Add(float64(len(changed)))
	if len(changed) > 0 {
		m.audit.Log(ctx, audit.LevelWarn, guildID, "", audit.EventFreeze, strings.Join(changed, ","))
	}
	return changed, nil
}

// UnfreezeServer reverses FreezeServer on channels that are exactly in the
// locked state.
func (m *Monitor) UnfreezeServer(ctx context.Context, guildID string) ([]string, error) {
	changed, err := m.toggleChannels(ctx, guildID, false)
	if err != nil {
		return nil, err
	}
	metrics.ChannelsUnfrozenTotal.Add(float64(len(changed)))
	if len(changed) > 0 {
		m.audit.Log(ctx, audit.LevelInfo, guildID, "", audit.EventUnfreeze, strings.Join(changed, ","))
	}
	return changed, nil
}

func (m *Monitor) toggleChannels(ctx context.Context, guildID string, freeze bool) ([]string, error) {
	settings := m.settings(ctx, guildID)
	if settings.RoleMemberPlus == "" {
		return nil, ErrRoleNotConfigured
	}
	channels, err := m.store.ListFreezableChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, ErrNoFreezableChannels
	}

	var (
		mu      sync.Mutex
		changed []string
		group   errgroup.Group
	)
	workers := m.cfg.FreezeWorkers
	if workers <= 0 {
		workers = 1
	}
	group.SetLimit(workers)
	for _, channelID := range channels {
		group.Go(func() error {
			ok, err := m.toggleChannel(ctx, guildID, settings.RoleMemberPlus, channelID, freeze)
			if err != nil {
				m.logger.Warn("channel permission update failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.Error(err))
				return nil
			}
			if ok {
				mu.Lock()
				changed = append(changed, channelID)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	sort.Strings(changed)
	return changed, nil
}

// toggleChannel applies one freeze or unfreeze. The default role's id is
// the guild id.
func (m *Monitor) toggleChannel(ctx context.Context, guildID, memberPlusID, channelID string, freeze bool) (bool, error) {
	channel, err := m.platform.Channel(ctx, channelID)
	if err != nil {
		return false, err
	}
	everyone := roleOverwrite(channel, guildID)
	plus := roleOverwrite(channel, memberPlusID)

	if freeze {
		if hasSendOverwrite(everyone) || hasSendOverwrite(plus) {
			return false, nil
		}
		if err := m.platform.SetRolePermission(ctx, channelID, guildID, everyone.Allow, everyone.Deny|sendMessages); err != nil {
			return false, err
		}
		if err := m.platform.SetRolePermission(ctx, channelID, memberPlusID, plus.Allow|sendMessages, plus.Deny); err != nil {
			return false, err
		}
		return true, nil
	}

	locked := everyone.Deny&sendMessages != 0 && everyone.Allow&sendMessages == 0 &&
		plus.Allow&sendMessages != 0 && plus.Deny&sendMessages == 0
	if !locked {
		return false, nil
	}
	if err := m.platform.SetRolePermission(ctx, channelID, guildID, everyone.Allow, everyone.Deny&^sendMessages); err != nil {
		return false, err
	}
	if err := m.platform.SetRolePermission(ctx, channelID, memberPlusID, plus.Allow&^sendMessages, plus.Deny); err != nil {
		return false, err
	}
	return true, nil
}

func roleOverwrite(channel *discordgo.Channel, roleID string) discordgo.PermissionOverwrite {
	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite != nil && overwrite.ID == roleID && overwrite.Type == discordgo.PermissionOverwriteTypeRole {
			return *overwrite
		}
	}
	return discordgo.PermissionOverwrite{ID: roleID, Type: discordgo.PermissionOverwriteTypeRole}
}

func hasSendOverwrite(overwrite discordgo.PermissionOverwrite) bool {
	return (overwrite.Allow|overwrite.Deny)&sendMessages != 0
}
