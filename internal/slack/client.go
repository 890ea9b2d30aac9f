package slack

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/databot/databot-backend/internal/config"
	"github.com/databot/databot-backend/internal/models"
)

const thinkingMessage = "🤖 _Analyzing your data..._"

// Client wraps the Slack Web API for outbound delivery: text replies,
// in-place updates of the placeholder message, and file uploads.
// Delivery failures are logged, never surfaced to the core.
type Client struct {
	api    *slack.Client
	logger *logrus.Logger
}

// NewClient creates a Slack Web API client.
func NewClient(cfg config.SlackConfig, logger *logrus.Logger) *Client {
	return &Client{
		api:    slack.New(cfg.BotToken),
		logger: logger,
	}
}

// PostThinking sends the placeholder message and returns its timestamp
// so the final reply can replace it. An empty timestamp means the
// placeholder failed and the reply should be posted as a new message.
func (c *Client) PostThinking(ctx context.Context, channelID string) string {
	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(thinkingMessage, false),
	)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to post placeholder message")
		return ""
	}
	return ts
}

// PostReply delivers the reply text, updating the placeholder in place
// when one exists.
func (c *Client) PostReply(ctx context.Context, channelID, placeholderTS, text string) {
	var err error
	if placeholderTS != "" {
		_, _, _, err = c.api.UpdateMessageContext(ctx, channelID, placeholderTS,
			slack.MsgOptionText(text, false),
		)
	} else {
		_, _, err = c.api.PostMessageContext(ctx, channelID,
			slack.MsgOptionText(text, false),
		)
	}
	if err != nil {
		c.logger.WithError(err).Error("Failed to deliver reply")
	}
}

// UploadArtifact attaches an exported file to the channel along with
// the SQL that produced it.
func (c *Client) UploadArtifact(ctx context.Context, channelID, queryText string, artifact *models.Artifact) {
	if queryText != "" {
		_, _, err := c.api.PostMessageContext(ctx, channelID,
			slack.MsgOptionText(fmt.Sprintf("*Generated SQL:*\n```%s```", queryText), false),
		)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to post query text")
		}
	}

	_, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:         bytes.NewReader(artifact.Content),
		Filename:       artifact.Filename,
		FileSize:       len(artifact.Content),
		Channel:        channelID,
		InitialComment: "✅ Query results attached.",
	})
	if err != nil {
		c.logger.WithError(err).Error("Failed to upload file")
		return
	}
	c.logger.WithField("filename", artifact.Filename).Info("File uploaded")
}
