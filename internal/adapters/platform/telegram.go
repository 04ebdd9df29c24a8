package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	publisherPort "crosspost/internal/ports/publisher"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// TelegramPublisher sends to a channel through the Bot API. The access token
// is the bot token and AccountID is the channel ("@name" or a numeric chat
// id). The bot is built Offline so construction never touches the network.
type TelegramPublisher struct {
	limiter *rate.Limiter
}

func NewTelegramPublisher(requestsPerSecond float64) *TelegramPublisher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &TelegramPublisher{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

type channelRecipient string

func (c channelRecipient) Recipient() string { return string(c) }

func (p *TelegramPublisher) Publish(ctx context.Context, auth publisherPort.Auth, content publisherPort.Content) (*publisherPort.Result, error) {
	if auth.AccountID == "" {
		return nil, fmt.Errorf("telegram integration has no channel id")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bot, err := tele.NewBot(tele.Settings{Token: auth.AccessToken, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("could not build telegram bot: %w", err)
	}

	var to tele.Recipient
	if id, err := strconv.ParseInt(auth.AccountID, 10, 64); err == nil {
		to = tele.ChatID(id)
	} else {
		to = channelRecipient(auth.AccountID)
	}

	msg, err := bot.Send(to, composeText(content))
	if err != nil {
		return nil, err
	}

	result := &publisherPort.Result{PlatformPostID: strconv.Itoa(msg.ID)}
	if name := strings.TrimPrefix(auth.AccountID, "@"); name != auth.AccountID {
		// Only public channels have a stable t.me permalink.
		result.URL = fmt.Sprintf("https://t.me/%s/%d", name, msg.ID)
	}
	return result, nil
}
