package telegram

import (
	"context"
	"html"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/interviewer"
	"qualifier-bot/internal/settings"
)

// handleAdminCommand выполняет команды администратора. Права проверяет вызывающий.
func (h *Handler) handleAdminCommand(ctx context.Context, log *zap.Logger, chatID int64, command string, args []string) {
	msgs := h.script.Messages

	switch command {
	case "/admin":
		h.send(ctx, log, chatID, interviewer.Reply{
			Text: msgs.AdminMenu,
			Actions: [][]interviewer.Action{{
				{Label: msgs.AdminStatsButton, Data: interviewer.ActionAdminStats},
				{Label: msgs.AdminSettingsButton, Data: interviewer.ActionAdminSettings},
			}},
		})

	case "/stats":
		snap := h.metrics.Snapshot(ctx)
		h.send(ctx, log, chatID, interviewer.Reply{Text: config.Fill(msgs.AdminStats,
			"started", strconv.FormatInt(snap.InterviewsStarted, 10),
			"passed", strconv.FormatInt(snap.Passed, 10))})

	case "/settings":
		h.send(ctx, log, chatID, interviewer.Reply{Text: config.Fill(msgs.AdminSettings, "settings", h.renderSettings())})

	case "/set":
		if len(args) < 2 || !settings.Known(args[0]) {
			h.send(ctx, log, chatID, interviewer.Reply{Text: config.Fill(msgs.AdminSetUsage,
				"keys", strings.Join(settings.Keys(), ", "))})
			return
		}
		key, value := args[0], strings.Join(args[1:], " ")
		h.settings.Set(key, value)
		log.Info("setting updated", zap.String("key", key))
		h.send(ctx, log, chatID, interviewer.Reply{Text: config.Fill(msgs.AdminSetDone, "key", key)})

	case "/reset":
		if len(args) == 0 {
			h.send(ctx, log, chatID, interviewer.Reply{Text: msgs.AdminResetUsage})
			return
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			h.send(ctx, log, chatID, interviewer.Reply{Text: msgs.AdminResetUsage})
			return
		}

		unlock := h.locks.lock(target)
		storageCtx, cancel := h.storageContext(ctx)
		err = h.store.DeleteCandidate(storageCtx, target)
		cancel()
		unlock()
		if err != nil {
			log.Warn("admin reset failed", zap.Int64("target_id", target), zap.Error(err))
			h.send(ctx, log, chatID, interviewer.Reply{Text: msgs.Fallback})
			return
		}

		log.Info("candidate reset by admin", zap.Int64("target_id", target))
		h.send(ctx, log, chatID, interviewer.Reply{Text: config.Fill(msgs.AdminResetDone, "id", strconv.FormatInt(target, 10))})
	}
}

func (h *Handler) renderSettings() string {
	values := h.settings.All()

	var b strings.Builder
	for _, key := range settings.Keys() {
		b.WriteString("<b>" + key + "</b>: " + html.EscapeString(values[key]) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
