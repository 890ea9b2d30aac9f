package slack

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/databot/databot-backend/internal/models"
)

// MessageProcessor is the orchestrator as the transport sees it.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, userID, channelID, text string) *models.Outcome
}

// Handler receives Slack event callbacks, acknowledges them within
// Slack's deadline, and processes each message in the background.
type Handler struct {
	processor     MessageProcessor
	client        *Client
	signingSecret string
	logger        *logrus.Logger
}

// NewHandler creates the Slack events handler.
func NewHandler(processor MessageProcessor, client *Client, signingSecret string, logger *logrus.Logger) *Handler {
	return &Handler{
		processor:     processor,
		client:        client,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// Register mounts the Slack routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Post("/slack/events", h.handleEvents)
}

func (h *Handler) handleEvents(c *fiber.Ctx) error {
	body := c.Body()

	if err := h.verifySignature(c, body); err != nil {
		h.logger.WithError(err).Warn("Rejected request with bad signature")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.logger.WithError(err).Warn("Unparseable Slack event")
		return c.SendStatus(fiber.StatusBadRequest)
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.JSON(fiber.Map{"challenge": challenge.Challenge})

	case slackevents.CallbackEvent:
		// Slack redelivers unacknowledged events; processing a retry
		// would answer the same message twice.
		if c.Get("X-Slack-Retry-Num") != "" {
			return c.SendStatus(fiber.StatusOK)
		}
		h.handleCallback(event.InnerEvent)
		return c.SendStatus(fiber.StatusOK)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Handler) handleCallback(inner slackevents.EventsAPIInnerEvent) {
	msg, ok := inner.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Only user messages; the bot's own posts come back as events too
	if msg.BotID != "" || msg.SubType == "bot_message" || msg.Text == "" {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user":    msg.User,
		"channel": msg.Channel,
	}).Info("Message received")

	go h.process(msg.User, msg.Channel, msg.Text)
}

// process runs one message through the orchestrator off the request
// goroutine, so the event callback is acknowledged within Slack's
// 3-second deadline.
func (h *Handler) process(userID, channelID, text string) {
	ctx := context.Background()

	placeholderTS := h.client.PostThinking(ctx, channelID)
	outcome := h.processor.ProcessMessage(ctx, userID, channelID, text)
	h.client.PostReply(ctx, channelID, placeholderTS, outcome.Reply)

	if outcome.Exported && outcome.Artifact != nil {
		h.client.UploadArtifact(ctx, channelID, outcome.QueryText, outcome.Artifact)
	}
}

func (h *Handler) verifySignature(c *fiber.Ctx, body []byte) error {
	header := make(http.Header)
	for key, values := range c.GetReqHeaders() {
		for _, v := range values {
			header.Add(key, v)
		}
	}

	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}
