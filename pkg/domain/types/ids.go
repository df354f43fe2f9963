package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// WorkspaceID represents a Slack workspace (team) identifier, e.g. "T0123ABCD"
type WorkspaceID string

// Validate checks if the WorkspaceID is valid
func (x WorkspaceID) Validate() error {
	if x == "" {
		return goerr.New("workspace ID cannot be empty")
	}
	return nil
}

// String returns the string representation of WorkspaceID
func (x WorkspaceID) String() string {
	return string(x)
}

// ChannelID represents a Slack conversation identifier, e.g. "C0123ABCD"
type ChannelID string

// Validate checks if the ChannelID is valid
func (x ChannelID) Validate() error {
	if x == "" {
		return goerr.New("channel ID cannot be empty")
	}
	return nil
}

// String returns the string representation of ChannelID
func (x ChannelID) String() string {
	return string(x)
}

// BotTokenPrefix is the prefix convention for Slack bot user OAuth tokens
const BotTokenPrefix = "xoxb-"

// IsBotToken reports whether the token follows the bot token prefix convention
func IsBotToken(token string) bool {
	return strings.HasPrefix(token, BotTokenPrefix)
}
