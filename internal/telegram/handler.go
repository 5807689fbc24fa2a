package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/interviewer"
	"qualifier-bot/internal/logger"
	"qualifier-bot/internal/metrics"
	"qualifier-bot/internal/settings"
	"qualifier-bot/internal/slip"
	"qualifier-bot/internal/storage"
)

type RateLimiter struct {
	requests map[int64][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) IsAllowed(userID int64) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	if requests, exists := rl.requests[userID]; exists {
		var valid []time.Time
		for _, t := range requests {
			if now.Sub(t) < rl.window {
				valid = append(valid, t)
			}
		}
		rl.requests[userID] = valid
	}

	if len(rl.requests[userID]) >= rl.limit {
		return false
	}

	rl.requests[userID] = append(rl.requests[userID], now)
	return true
}

// Cleanup удаляет пользователей без запросов в текущем окне
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for uid, requests := range rl.requests {
		if len(requests) == 0 || now.Sub(requests[len(requests)-1]) >= rl.window {
			delete(rl.requests, uid)
		}
	}
}

// candidateLocks сериализует работу с записью одного кандидата.
// /reset администратора приходит из шарда администратора.
type candidateLocks struct {
	stripes [64]sync.Mutex
}

func (l *candidateLocks) lock(id int64) func() {
	idx := id % int64(len(l.stripes))
	if idx < 0 {
		idx = -idx
	}
	m := &l.stripes[idx]
	m.Lock()
	return m.Unlock
}

// Messenger — исходящая сторона Bot API, Bot удовлетворяет интерфейсу
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Submitter отправляет отложенную задачу
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// Deps — зависимости обработчика
type Deps struct {
	Bot      Messenger
	Machine  *interviewer.Machine
	Store    storage.CandidateStore
	Settings *settings.Cache
	Metrics  *metrics.Metrics
	Notifier *slip.Notifier
	Archive  *storage.Archive
	Jobs     Submitter
	Logger   *zap.Logger

	Admins         []int64
	GroupChatID    int64
	RateLimit      int
	StorageTimeout time.Duration
}

type Handler struct {
	bot      Messenger
	machine  *interviewer.Machine
	script   *config.Script
	store    storage.CandidateStore
	settings *settings.Cache
	metrics  *metrics.Metrics
	notifier *slip.Notifier
	archive  *storage.Archive
	jobs     Submitter
	logger   *zap.Logger

	admins         map[int64]struct{}
	groupChatID    int64
	rateLimiter    *RateLimiter
	storageTimeout time.Duration
	now            func() time.Time

	locks candidateLocks
}

func NewHandler(deps Deps) *Handler {
	admins := make(map[int64]struct{}, len(deps.Admins))
	for _, id := range deps.Admins {
		admins[id] = struct{}{}
	}

	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = 20
	}

	return &Handler{
		bot:            deps.Bot,
		machine:        deps.Machine,
		script:         deps.Machine.Script(),
		store:          deps.Store,
		settings:       deps.Settings,
		metrics:        deps.Metrics,
		notifier:       deps.Notifier,
		archive:        deps.Archive,
		jobs:           deps.Jobs,
		logger:         logger.OrNop(deps.Logger),
		admins:         admins,
		groupChatID:    deps.GroupChatID,
		rateLimiter:    NewRateLimiter(rateLimit, time.Minute),
		storageTimeout: deps.StorageTimeout,
		now:            time.Now,
	}
}

// RateLimiter возвращает ограничитель частоты запросов
func (h *Handler) RateLimiter() *RateLimiter {
	return h.rateLimiter
}

// HandleUpdate обрабатывает одно обновление. Для одного пользователя
// вызовы должны идти последовательно.
func (h *Handler) HandleUpdate(ctx context.Context, update Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		h.handleMessage(ctx, update.Message)
	}
}

// KeyOf возвращает ключ, по которому обновления распределяются между шардами
func KeyOf(update Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	}
	return 0
}

func (h *Handler) handleMessage(ctx context.Context, msg *Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	log := h.logger.With(zap.Int64(logger.FieldUserID, userID), zap.Int64(logger.FieldChatID, chatID))

	if !msg.Chat.IsPrivate() {
		// В группах отвечаем только на ключевое слово. Если группа задана,
		// остальные группы игнорируются.
		if h.groupChatID != 0 && chatID != h.groupChatID {
			return
		}
		if strings.EqualFold(text, "IT") {
			mention := fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(msg.From.FirstName))
			h.send(ctx, log, chatID, interviewer.Reply{Text: config.Fill(h.script.Messages.GroupRedirect, "mention", mention)})
		}
		return
	}

	if !h.rateLimiter.IsAllowed(userID) {
		h.send(ctx, log, chatID, interviewer.Reply{Text: h.script.Messages.RateLimited})
		return
	}

	if strings.HasPrefix(text, "/") {
		if h.handleCommand(ctx, log, msg, text) {
			return
		}
	}

	if strings.EqualFold(text, "IT") {
		h.send(ctx, log, chatID, h.machine.Menu())
		return
	}

	log.Debug("text received", zap.String("text", logger.TruncateForLog(text, 64)))
	h.process(ctx, log, msg.From, chatID, 0, interviewer.Event{Kind: interviewer.EventText, Text: text})
}

// handleCommand возвращает false, если команда неизвестна и текст надо
// передать машине состояний
func (h *Handler) handleCommand(ctx context.Context, log *zap.Logger, msg *Message, text string) bool {
	command, args := parseCommand(text)
	chatID := msg.Chat.ID

	switch command {
	case "/start":
		h.send(ctx, log, chatID, h.machine.Welcome(html.EscapeString(msg.From.FirstName)))
	case "/help":
		h.send(ctx, log, chatID, h.machine.Help())
	case "/slip":
		h.process(ctx, log, msg.From, chatID, 0, interviewer.Event{Kind: interviewer.EventSlip})
	case "/admin", "/stats", "/settings", "/set", "/reset":
		if !h.isAdmin(msg.From.ID) {
			log.Debug("admin command from non-admin", zap.String("command", command))
			return true
		}
		h.handleAdminCommand(ctx, log, chatID, command, args)
	default:
		return false
	}
	return true
}

func (h *Handler) handleCallback(ctx context.Context, query *CallbackQuery) {
	if query.From == nil {
		return
	}

	if err := h.bot.AnswerCallbackQuery(ctx, query.ID); err != nil {
		h.logger.Debug("failed to answer callback", zap.Error(err))
	}

	userID := query.From.ID
	chatID := userID
	messageID := 0
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
		messageID = query.Message.MessageID
	}

	log := h.logger.With(zap.Int64(logger.FieldUserID, userID), zap.Int64(logger.FieldChatID, chatID))

	if !h.rateLimiter.IsAllowed(userID) {
		h.send(ctx, log, chatID, interviewer.Reply{Text: h.script.Messages.RateLimited})
		return
	}

	var kind interviewer.EventKind
	switch query.Data {
	case interviewer.ActionStartExam:
		kind = interviewer.EventBegin
	case interviewer.ActionConfirmReady:
		kind = interviewer.EventConfirmReady
	case interviewer.ActionAcceptTerms:
		kind = interviewer.EventAcceptTerms
	case interviewer.ActionResetMe:
		kind = interviewer.EventReset
	case interviewer.ActionAdminStats:
		if h.isAdmin(userID) {
			h.handleAdminCommand(ctx, log, chatID, "/stats", nil)
		}
		return
	case interviewer.ActionAdminSettings:
		if h.isAdmin(userID) {
			h.handleAdminCommand(ctx, log, chatID, "/settings", nil)
		}
		return
	default:
		log.Debug("unknown callback data", zap.String("data", query.Data))
		return
	}

	h.process(ctx, log, query.From, chatID, messageID, interviewer.Event{Kind: kind})
}

// process выполняет цикл: загрузка записи, переход, сохранение, эффекты, ответы.
// editMessageID != 0 означает, что первый ответ заменяет сообщение с кнопкой.
func (h *Handler) process(ctx context.Context, log *zap.Logger, user *User, chatID int64, editMessageID int, ev interviewer.Event) {
	unlock := h.locks.lock(user.ID)
	rec := h.loadRecord(ctx, log, user.ID)
	res := h.machine.Transition(rec, ev)

	log.Debug("transition",
		zap.String(logger.FieldEvent, ev.Kind.String()),
		zap.String("from", string(rec.State)),
		zap.String(logger.FieldState, string(res.Record.State)))

	switch {
	case res.Delete:
		h.withStorage(ctx, func(ctx context.Context) error {
			return h.store.DeleteCandidate(ctx, user.ID)
		}, log, "failed to delete candidate")
	case res.Save:
		h.withStorage(ctx, func(ctx context.Context) error {
			return h.store.SaveCandidate(ctx, user.ID, res.Record)
		}, log, "failed to save candidate")
	}
	unlock()

	replies := res.Replies
	slipSent := false
	for _, effect := range res.Effects {
		switch effect.Kind {
		case interviewer.EffectInterviewStarted:
			h.metrics.IncrementInterviewsStarted()
		case interviewer.EffectPassed:
			h.metrics.IncrementPassed()
			log.Info("candidate passed", zap.String("interview_id", res.Record.InterviewID))
		case interviewer.EffectSlip:
			slipSent = h.deliverSlip(ctx, log, user, chatID, res.Record)
			if !slipSent {
				replies = append(replies, interviewer.Reply{Text: h.script.Messages.Fallback})
			}
		}
	}

	// Кандидат всегда получает какой-то ответ
	if len(replies) == 0 && !slipSent {
		replies = []interviewer.Reply{h.machine.Hint(res.Record)}
	}

	for i, reply := range replies {
		if i == 0 && editMessageID != 0 {
			h.edit(ctx, log, chatID, editMessageID, reply)
			continue
		}
		h.send(ctx, log, chatID, reply)
	}
}

// loadRecord читает запись кандидата. Любая ошибка кроме ErrNotFound
// логируется, и кандидат продолжает с новой записью.
func (h *Handler) loadRecord(ctx context.Context, log *zap.Logger, userID int64) storage.CandidateRecord {
	ctx, cancel := h.storageContext(ctx)
	defer cancel()

	rec, err := h.store.GetCandidate(ctx, userID)
	switch {
	case err == nil:
		return rec
	case errors.Is(err, storage.ErrNotFound):
		return storage.DefaultRecord()
	default:
		log.Warn("failed to load candidate, using default record", zap.Error(err))
		return storage.DefaultRecord()
	}
}

func (h *Handler) deliverSlip(ctx context.Context, log *zap.Logger, user *User, chatID int64, rec storage.CandidateRecord) bool {
	record := storage.SlipRecord{
		CandidateID: user.ID,
		DisplayName: user.FirstName,
		InterviewID: rec.InterviewID,
		IssuedAt:    h.now(),
		Answers:     rec.Answers,
	}
	record.Text = slip.Render(slip.Slip{
		CandidateID: record.CandidateID,
		DisplayName: record.DisplayName,
		InterviewID: record.InterviewID,
		AdminName:   h.settings.Get(settings.KeyAdminDisplayName),
		Answers:     record.Answers,
		IssuedAt:    record.IssuedAt,
	}, slip.TemplatesFrom(h.script.Messages))

	if h.archive != nil && h.jobs != nil {
		h.jobs.Submit("slip-archive", func(context.Context) error {
			return h.archive.SaveSlip(record)
		})
	}

	if err := h.notifier.Deliver(ctx, chatID, record.Text); err != nil {
		log.Warn("slip was not delivered to candidate", zap.Error(err))
		return false
	}
	log.Info("slip issued", zap.Int("answers", len(record.Answers)))
	return true
}

func (h *Handler) withStorage(ctx context.Context, fn func(ctx context.Context) error, log *zap.Logger, msg string) {
	ctx, cancel := h.storageContext(ctx)
	defer cancel()

	if err := fn(ctx); err != nil {
		log.Warn(msg, zap.Error(err))
	}
}

func (h *Handler) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.storageTimeout > 0 {
		return context.WithTimeout(ctx, h.storageTimeout)
	}
	return context.WithCancel(ctx)
}

func (h *Handler) send(ctx context.Context, log *zap.Logger, chatID int64, reply interviewer.Reply) {
	if err := h.bot.SendMessage(ctx, chatID, reply.Text, keyboard(reply.Actions)); err != nil {
		log.Warn("failed to send message", zap.Error(err))
	}
}

// edit заменяет сообщение с кнопкой, при ошибке отправляет новое
func (h *Handler) edit(ctx context.Context, log *zap.Logger, chatID int64, messageID int, reply interviewer.Reply) {
	if err := h.bot.EditMessageText(ctx, chatID, messageID, reply.Text, keyboard(reply.Actions)); err != nil {
		log.Debug("failed to edit message, sending new one", zap.Error(err))
		h.send(ctx, log, chatID, reply)
	}
}

func (h *Handler) isAdmin(userID int64) bool {
	_, ok := h.admins[userID]
	return ok
}

func keyboard(actions [][]interviewer.Action) *InlineKeyboardMarkup {
	if len(actions) == 0 {
		return nil
	}

	markup := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(actions))}
	for _, row := range actions {
		buttons := make([]InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			buttons = append(buttons, InlineKeyboardButton{Text: a.Label, CallbackData: a.Data, URL: a.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// parseCommand отделяет команду от аргументов и убирает @botname
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := strings.ToLower(fields[0])
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return command, fields[1:]
}
