package antiraid

import "github.com/bwmarrin/discordgo"

// Verdict is the outcome of classifying one event. A nil Verdict means the
// event is benign.
type Verdict interface {
	Kind() string
	isVerdict()
}

// PingSpam: too many unique user or role mentions in one message.
type PingSpam struct {
	Member  *discordgo.Member
	Message *discordgo.Message
	Users   int
	Roles   int
}

// RaidPhrase: the message contains a registered raid phrase the author
// cannot bypass.
type RaidPhrase struct {
	Member  *discordgo.Member
	Message *discordgo.Message
	Phrase  string
}

// MessageSpam: the author tripped the personal message-rate bucket.
type MessageSpam struct {
	Member  *discordgo.Member
	Message *discordgo.Message
}

// ScamLinkSuspect: a mass mention or bait wording next to a link. Reported
// only.
type ScamLinkSuspect struct {
	Member  *discordgo.Member
	Message *discordgo.Message
	URLs    []string
}

// JoinSpamBurst carries everyone who joined inside the burst window.
type JoinSpamBurst struct {
	GuildID string
	Trigger *discordgo.Member
	Cohort  []*discordgo.Member
}

// JoinSpamSameDay carries the recent joiners whose accounts were created on
// the same day.
type JoinSpamSameDay struct {
	GuildID   string
	Trigger   *discordgo.Member
	CreatedOn string
	Cohort    []*discordgo.Member
}

func (PingSpam) Kind() string        { return "ping_spam" }
func (RaidPhrase) Kind() string      { return "raid_phrase" }
func (MessageSpam) Kind() string     { return "message_spam" }
func (ScamLinkSuspect) Kind() string { return "scam_link" }
func (JoinSpamBurst) Kind() string   { return "join_spam" }
func (JoinSpamSameDay) Kind() string { return "join_spam_same_day" }

func (PingSpam) isVerdict()        {}
func (RaidPhrase) isVerdict()      {}
func (MessageSpam) isVerdict()     {}
func (ScamLinkSuspect) isVerdict() {}
func (JoinSpamBurst) isVerdict()   {}
func (JoinSpamSameDay) isVerdict() {}
