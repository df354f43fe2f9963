package connector

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// RequiredScopes is the fixed scope set the sync engine needs to discover
// channels, read history and resolve attachments
var RequiredScopes = []string{
	"channels:read",
	"channels:history",
	"groups:read",
	"groups:history",
	"users:read",
	"files:read",
}

// TokenValidator validates workspace credential shape and granted scopes
type TokenValidator struct {
	client interfaces.MessagingClient
}

// NewTokenValidator creates a validator bound to one upstream client
func NewTokenValidator(client interfaces.MessagingClient) *TokenValidator {
	return &TokenValidator{client: client}
}

// ValidateFormat checks the token against the bot token prefix convention.
// This is a shape check only; no network call is made.
func (v *TokenValidator) ValidateFormat(token string) error {
	if token == "" {
		return goerr.New("token is empty", goerr.T(model.TagAuth))
	}
	if !types.IsBotToken(token) {
		return goerr.New("token does not look like a bot token",
			goerr.V("expected_prefix", types.BotTokenPrefix), goerr.T(model.TagAuth))
	}
	return nil
}

// CheckScopes compares the granted scope set against RequiredScopes
func (v *TokenValidator) CheckScopes(granted []string) (hasAll bool, missing []string) {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		grantedSet[s] = struct{}{}
	}

	for _, required := range RequiredScopes {
		if _, ok := grantedSet[required]; !ok {
			missing = append(missing, required)
		}
	}

	return len(missing) == 0, missing
}

// ValidateToken performs a live capability check against the upstream API
// and verifies the granted scopes cover RequiredScopes
func (v *TokenValidator) ValidateToken(ctx context.Context) (*model.TokenInfo, error) {
	info, err := v.client.AuthTest(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "auth test failed", goerr.T(model.TagAuth))
	}

	if hasAll, missing := v.CheckScopes(info.Scopes); !hasAll {
		return nil, goerr.New("insufficient scopes",
			goerr.V("missing", missing),
			goerr.V("granted", info.Scopes),
			goerr.T(model.TagAuth))
	}

	return info, nil
}
