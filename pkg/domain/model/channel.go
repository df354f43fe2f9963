package model

import "github.com/secmon-lab/briareus/pkg/domain/types"

// Channel is a conversation container in the upstream workspace. Sourced from
// the Slack API and cached by the permission resolver; never mutated locally.
type Channel struct {
	ID         types.ChannelID
	Name       string
	Kind       types.ChannelKind
	IsMember   bool
	IsArchived bool
}
