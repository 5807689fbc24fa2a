package slip

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sender доставляет текст в чат
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Notifier отправляет слип кандидату и всем администраторам
type Notifier struct {
	sender       Sender
	admins       []int64
	prefix       string
	adminTimeout time.Duration
	logger       *zap.Logger
}

func NewNotifier(sender Sender, admins []int64, prefix string, adminTimeout time.Duration, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		sender:       sender,
		admins:       admins,
		prefix:       prefix,
		adminTimeout: adminTimeout,
		logger:       logger,
	}
}

// Deliver отправляет слип кандидату один раз, затем каждому администратору.
// Ошибки отправки администраторам логируются и не прерывают рассылку.
// Возвращается только ошибка отправки кандидату.
func (n *Notifier) Deliver(ctx context.Context, candidateChat int64, text string) error {
	candidateErr := n.sender.Send(ctx, candidateChat, text)
	if candidateErr != nil {
		n.logger.Warn("failed to send slip to candidate",
			zap.Int64("chat_id", candidateChat), zap.Error(candidateErr))
	}

	adminText := text
	if n.prefix != "" {
		adminText = n.prefix + "\n\n" + text
	}

	for _, admin := range n.admins {
		n.notifyAdmin(ctx, admin, adminText)
	}

	if candidateErr != nil {
		return fmt.Errorf("send slip to %d: %w", candidateChat, candidateErr)
	}
	return nil
}

func (n *Notifier) notifyAdmin(ctx context.Context, admin int64, text string) {
	if n.adminTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.adminTimeout)
		defer cancel()
	}

	if err := n.sender.Send(ctx, admin, text); err != nil {
		n.logger.Warn("failed to notify admin", zap.Int64("admin_id", admin), zap.Error(err))
		return
	}
	n.logger.Debug("admin notified", zap.Int64("admin_id", admin))
}
