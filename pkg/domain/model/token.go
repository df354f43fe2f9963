package model

import "github.com/secmon-lab/briareus/pkg/domain/types"

// TokenInfo is the result of a live capability check against the Slack API
type TokenInfo struct {
	WorkspaceID types.WorkspaceID
	Workspace   string
	BotID       string
	BotUserID   string
	Scopes      []string
}

// HasScope reports whether the granted scope set contains the scope
func (x *TokenInfo) HasScope(scope string) bool {
	for _, s := range x.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
