package app

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"mallbot/core/logger"
	tghelpers "mallbot/core/telegram/helpers"
	"mallbot/core/telegram/keyboard"
	"mallbot/internal/checkout"
)

type teleCtxKey struct{}

// withTele attaches the update's tele.Context so the presenter can reply on
// the same conversation without holding a bot reference.
func withTele(ctx context.Context, c tele.Context) context.Context {
	return context.WithValue(ctx, teleCtxKey{}, c)
}

func teleFrom(ctx context.Context) (tele.Context, bool) {
	c, ok := ctx.Value(teleCtxKey{}).(tele.Context)
	return c, ok
}

// presenter renders checkout prompts over the current Telegram conversation.
// Transport failures are logged and swallowed so the flow state never depends
// on delivery.
type presenter struct{}

func (presenter) Prompt(ctx context.Context, userID int64, text string, buttons ...[]checkout.Button) {
	c, ok := teleFrom(ctx)
	if !ok {
		logger.Warn(ctx, "tg", "prompt.drop",
			slog.Int64("user_id", userID),
			slog.String("reason", "no_transport_context"),
		)
		return
	}

	var err error
	if len(buttons) == 0 {
		err = tghelpers.SendMD(c, text)
	} else {
		rows := make([][]keyboard.InlineBtn, 0, len(buttons))
		for _, row := range buttons {
			btns := make([]keyboard.InlineBtn, 0, len(row))
			for _, b := range row {
				btns = append(btns, keyboard.InlineBtn{Text: b.Label, Unique: b.Action, Data: b.Payload})
			}
			rows = append(rows, btns)
		}
		err = tghelpers.SendMD(c, text, keyboard.InlineButtonsRows(rows...))
	}
	if err != nil {
		logger.Warn(ctx, "tg", "prompt.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

var _ checkout.Presenter = presenter{}
