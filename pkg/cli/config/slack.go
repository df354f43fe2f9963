package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/briareus/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for the upstream workspace credential
type Slack struct {
	botToken      string
	rateLimitTier int
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (xoxb-...)",
			Category:    "Slack",
			Sources:     cli.EnvVars("BRIAREUS_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.IntFlag{
			Name:        "slack-rate-limit-tier",
			Usage:       "Rate limit tier of the credential (1-4), drives request budget and fan-out",
			Category:    "Slack",
			Value:       2,
			Sources:     cli.EnvVars("BRIAREUS_SLACK_RATE_LIMIT_TIER"),
			Destination: &x.rateLimitTier,
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("rate-limit-tier", x.rateLimitTier),
	)
}

// BotToken returns the Slack bot token
func (x *Slack) BotToken() string {
	return x.botToken
}

// RateLimitTier returns the configured rate limit tier
func (x *Slack) RateLimitTier() int {
	return x.rateLimitTier
}

// IsConfigured checks if a credential is present
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure creates the Slack messaging client
func (x *Slack) Configure() (*slacksvc.Client, error) {
	if x.botToken == "" {
		return nil, goerr.New("slack-bot-token is required")
	}
	return slacksvc.New(x.botToken)
}
