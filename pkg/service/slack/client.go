package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/utils/safe"
	"github.com/slack-go/slack"
)

const (
	defaultAPIURL = "https://slack.com/api/"

	// listChannelsPageSize is the page size for conversations.list
	listChannelsPageSize = 200
)

// Client implements interfaces.MessagingClient over the Slack Web API
type Client struct {
	api        *slack.Client
	token      string
	apiURL     string
	httpClient *http.Client
}

var _ interfaces.MessagingClient = &Client{}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithAPIURL overrides the Slack API base URL, mainly for tests
func WithAPIURL(url string) Option {
	return func(c *Client) {
		c.apiURL = url
	}
}

// WithHTTPClient overrides the HTTP client used for raw API calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Slack messaging client with the provided bot token
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required", goerr.T(model.TagAuth))
	}

	c := &Client{
		token:      token,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.api = slack.New(token,
		slack.OptionAPIURL(c.apiURL),
		slack.OptionHTTPClient(c.httpClient),
	)

	return c, nil
}

// authTestResponse is the auth.test response body. The granted scope set is
// not part of the body; Slack returns it in the X-OAuth-Scopes header, so the
// call is made directly instead of through slack-go.
type authTestResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	TeamID string `json:"team_id"`
	Team   string `json:"team"`
	BotID  string `json:"bot_id"`
	UserID string `json:"user_id"`
}

// AuthTest performs a live capability check and returns the credential's
// identity and granted scopes
func (c *Client) AuthTest(ctx context.Context) (*model.TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"auth.test", nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build auth.test request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "auth.test request failed", goerr.T(model.TagTransient))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, goerr.New("auth.test rate limited",
			goerr.V("retry_after", resp.Header.Get("Retry-After")),
			goerr.T(model.TagRateLimit))
	}

	var body authTestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, goerr.Wrap(err, "failed to decode auth.test response", goerr.T(model.TagTransient))
	}
	if !body.OK {
		return nil, goerr.New("auth.test failed",
			goerr.V("error", body.Error), goerr.T(model.TagAuth))
	}

	var scopes []string
	if raw := resp.Header.Get("X-OAuth-Scopes"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}

	return &model.TokenInfo{
		WorkspaceID: types.WorkspaceID(body.TeamID),
		Workspace:   body.Team,
		BotID:       body.BotID,
		BotUserID:   body.UserID,
		Scopes:      scopes,
	}, nil
}

// ListChannels returns all conversations visible to the credential,
// following pagination until exhausted
func (c *Client) ListChannels(ctx context.Context) ([]model.Channel, error) {
	var channels []model.Channel
	var cursor string

	for {
		params := &slack.GetConversationsParameters{
			Types:           []string{"public_channel", "private_channel", "mpim", "im"},
			ExcludeArchived: false,
			Limit:           listChannelsPageSize,
			Cursor:          cursor,
		}

		convs, nextCursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, classify(err, "failed to list conversations")
		}

		for _, conv := range convs {
			channels = append(channels, toChannel(&conv))
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return channels, nil
}

// GetChannelInfo fetches metadata for one channel
func (c *Client) GetChannelInfo(ctx context.Context, channelID types.ChannelID) (*model.Channel, error) {
	info, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID.String(),
	})
	if err != nil {
		return nil, classify(err, "failed to get conversation info", goerr.V("channel_id", channelID))
	}

	ch := toChannel(info)
	return &ch, nil
}

// FetchHistory returns one page of channel history. Pages arrive newest
// first; the caller is responsible for cursor bookkeeping.
func (c *Client) FetchHistory(ctx context.Context, channelID types.ChannelID, params interfaces.HistoryParams) (*model.HistoryPage, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID.String(),
		Oldest:    params.Oldest,
		Cursor:    params.Cursor,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, classify(err, "failed to fetch history", goerr.V("channel_id", channelID))
	}

	page := &model.HistoryPage{
		Messages:   make([]model.RawMessage, 0, len(resp.Messages)),
		HasMore:    resp.HasMore,
		NextCursor: resp.ResponseMetaData.NextCursor,
	}

	for _, msg := range resp.Messages {
		raw := model.RawMessage{
			Timestamp: msg.Timestamp,
			ThreadTS:  msg.ThreadTimestamp,
			UserID:    msg.User,
			Text:      msg.Text,
			SubType:   msg.SubType,
		}
		for _, f := range msg.Files {
			raw.Files = append(raw.Files, model.FileRef{
				ID:         f.ID,
				Name:       f.Name,
				MimeType:   f.Mimetype,
				Size:       int64(f.Size),
				URLPrivate: f.URLPrivateDownload,
			})
		}
		page.Messages = append(page.Messages, raw)
	}

	return page, nil
}

// Token returns the bot token, needed by the attachment archiver to download
// file content from url_private
func (c *Client) Token() string {
	return c.token
}

func toChannel(conv *slack.Channel) model.Channel {
	kind := types.ChannelKindPublic
	switch {
	case conv.IsIM:
		kind = types.ChannelKindDirect
	case conv.IsMpIM:
		kind = types.ChannelKindGroupDirect
	case conv.IsPrivate:
		kind = types.ChannelKindPrivate
	}

	return model.Channel{
		ID:         types.ChannelID(conv.ID),
		Name:       conv.Name,
		Kind:       kind,
		IsMember:   conv.IsMember,
		IsArchived: conv.IsArchived,
	}
}
