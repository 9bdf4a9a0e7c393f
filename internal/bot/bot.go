package bot

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autofilter/internal/chat"
	"autofilter/internal/config"
	"autofilter/internal/index"
	"autofilter/internal/link"
	"autofilter/internal/search"
	"autofilter/internal/store"
)

// Bot wires the Bot API update loop to the indexing and search core.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	log      *zap.Logger
	sender   *Sender
	store    *store.Store
	scanner  *index.Scanner
	resolver *search.Resolver
	links    *link.Builder
	member   chat.MembershipChecker
	channels chat.Resolver

	startedAt time.Time

	// one scan at a time; /index while a scan runs is rejected.
	scanning atomic.Bool

	// broadcast control: /cancel flips the flag, the running broadcast
	// checks it between recipients.
	broadcastCancel atomic.Bool

	// "/clearindex all" arms a confirmation window; the next owner message
	// within it must be the confirmation phrase.
	clearAllDeadline time.Time
}

func New(
	cfg *config.Config,
	log *zap.Logger,
	st *store.Store,
	scanner *index.Scanner,
	resolver *search.Resolver,
	links *link.Builder,
	member chat.MembershipChecker,
	channels chat.Resolver,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	log.Info("bot authorized", zap.String("username", api.Self.UserName))

	return &Bot{
		api:       api,
		cfg:       cfg,
		log:       log,
		sender:    NewSender(api, cfg.LogChannel, log),
		store:     st,
		scanner:   scanner,
		resolver:  resolver,
		links:     links,
		member:    member,
		channels:  channels,
		startedAt: time.Now(),
	}, nil
}

// Run starts long polling and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.sender.Report("🚀 Bot started as @" + b.api.Self.UserName)
	b.log.Info("bot started, waiting for updates...")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("shutting down gracefully")
			return
		case upd := <-updates:
			b.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate dispatches a single update. Panics in handlers are contained
// per update.
func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in handler", zap.Any("recover", r))
		}
	}()

	if upd.CallbackQuery != nil {
		b.handleCallback(upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.From == nil {
		return
	}

	msg := upd.Message

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		b.handleGroupQuery(ctx, msg)
		return
	}

	// Private non-command message: maybe the pending clear-all confirmation,
	// otherwise point at /help.
	if b.tryClearAllConfirm(ctx, msg) {
		return
	}
	b.sender.Text(msg.Chat.ID, "Send a movie/series name in a group where I am added, or see /help.")
}

func (b *Bot) isOwner(userID int64) bool {
	return userID == b.cfg.OwnerID
}

// passesForceSub gates non-owner users on membership in the updates channel.
// A misconfigured channel or an indeterminate check never locks users out.
func (b *Bot) passesForceSub(ctx context.Context, msg *tgbotapi.Message) bool {
	if b.cfg.UpdatesChannel == "" || b.isOwner(msg.From.ID) {
		return true
	}
	ref, err := chat.ParseRef(b.cfg.UpdatesChannel)
	if err != nil {
		return true
	}

	switch b.member.CheckMember(ctx, ref, msg.From.ID) {
	case chat.Subscribed, chat.CheckIndeterminate:
		return true
	}

	channel := b.cfg.UpdatesChannel
	text := strings.NewReplacer(
		"{mention}", displayName(msg.From),
		"{channel}", channel,
	).Replace(b.cfg.ForceSubMsg)

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if ref.Handle != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("👉 Join Channel 👈", "https://t.me/"+ref.Handle),
			),
		)
	}
	reply.DisableWebPagePreview = true
	if _, err := b.sender.Send(reply); err != nil {
		b.log.Warn("failed to send force-sub prompt", zap.Error(err))
	}
	return false
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return u.FirstName
}
