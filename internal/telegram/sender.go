package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/ykvlv/taskbot/internal/domain"
)

// Sender delivers reminder texts under a global rate limit.
// It satisfies scheduler.Dispatcher.
type Sender struct {
	bot     botAPI
	limiter *rate.Limiter
}

// NewSender allows perSecond messages per second with an equal burst.
func NewSender(bot botAPI, perSecond int) *Sender {
	if perSecond <= 0 {
		perSecond = 20
	}
	return &Sender{bot: bot, limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

// Send sends a plain text message. Errors wrap domain.ErrDelivery.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %v", domain.ErrDelivery, err)
	}

	// The bot API call takes no context; give up waiting when ctx ends.
	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: chat %d: %v", domain.ErrDelivery, chatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: chat %d: %v", domain.ErrDelivery, chatID, ctx.Err())
	}
}
