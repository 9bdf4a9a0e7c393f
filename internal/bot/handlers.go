package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autofilter/internal/chat"
	"autofilter/internal/index"
	"autofilter/internal/store"
)

const helpText = `📖 How it works:
1. Add me to your group.
2. The owner connects source channels with /index.
3. Send any movie or series name in the group.
4. I search the indexed channels and reply with links.

Owner commands:
/index [channel] — index one channel, or all configured ones
/clearindex <channel|all> — drop a channel's index
/status — bot statistics
/broadcast <text> — message all active users (/cancel to stop)
/ban, /unban, /banned — user management`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.sender.Text(msg.Chat.ID, helpText)
	case "index":
		if b.isOwner(msg.From.ID) {
			b.handleIndex(ctx, msg)
		}
	case "clearindex":
		if b.isOwner(msg.From.ID) {
			b.handleClearIndex(ctx, msg)
		}
	case "status", "stats":
		if b.isOwner(msg.From.ID) {
			b.handleStatus(ctx, msg)
		}
	case "broadcast":
		if b.isOwner(msg.From.ID) {
			b.handleBroadcast(ctx, msg)
		}
	case "cancel":
		if b.isOwner(msg.From.ID) {
			b.broadcastCancel.Store(true)
			b.sender.Text(msg.Chat.ID, "Broadcast cancellation requested.")
		}
	case "ban":
		if b.isOwner(msg.From.ID) {
			b.handleBan(ctx, msg, true)
		}
	case "unban":
		if b.isOwner(msg.From.ID) {
			b.handleBan(ctx, msg, false)
		}
	case "banned":
		if b.isOwner(msg.From.ID) {
			b.handleBannedList(ctx, msg)
		}
	default:
		b.sender.Text(msg.Chat.ID, "Unknown command. Try /help")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.store.UpsertUser(ctx, msg.From.ID, msg.From.FirstName, msg.From.UserName); err != nil {
		b.log.Warn("failed to register user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}
	if !b.passesForceSub(ctx, msg) {
		return
	}

	text := strings.ReplaceAll(b.cfg.StartMsg, "{mention}", displayName(msg.From))
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)

	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", "help_cb")},
	}
	if b.cfg.RequestMovieURL != "" {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonURL(b.cfg.RequestMovieButtonText, b.cfg.RequestMovieURL),
		})
	}
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	reply.DisableWebPagePreview = true
	if _, err := b.sender.Send(reply); err != nil {
		b.log.Error("failed to send start message", zap.Error(err))
	}
	b.sender.Report(fmt.Sprintf("User %d (%s) started the bot.", msg.From.ID, msg.From.FirstName))
}

// --- Indexing ---

func (b *Bot) handleIndex(ctx context.Context, msg *tgbotapi.Message) {
	var targets []string
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		targets = strings.Fields(arg)
	} else {
		targets = b.cfg.IndexChannels
	}
	if len(targets) == 0 {
		b.sender.Text(msg.Chat.ID, "Usage: /index <channel>, or set INDEX_CHANNELS.")
		return
	}

	refs := make([]chat.ChannelRef, 0, len(targets))
	for _, t := range targets {
		ref, err := chat.ParseRef(t)
		if err != nil {
			b.sender.Text(msg.Chat.ID, "Invalid channel reference: "+t)
			return
		}
		refs = append(refs, ref)
	}

	if !b.scanning.CompareAndSwap(false, true) {
		b.sender.Text(msg.Chat.ID, "A scan is already running; wait for it to finish.")
		return
	}

	status, err := b.sender.Send(tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf("⏳ Starting indexing for %d channel(s)...", len(refs))))
	if err != nil {
		b.scanning.Store(false)
		return
	}
	b.sender.Report(fmt.Sprintf("Owner triggered indexing for %d channel(s).", len(refs)))

	// The scan runs off the update loop so searches keep working; results
	// may observe a channel mid-scan, which is accepted.
	go func() {
		defer b.scanning.Store(false)

		progress := func(rep index.Report) {
			b.sender.Edit(msg.Chat.ID, status.MessageID, fmt.Sprintf(
				"⏳ Indexing %s...\n\n✅ Added: %d\n⏭ Skipped: %d\n❌ Failed: %d\n\nThis can take a while...",
				rep.ChannelName, rep.Added, rep.Skipped, rep.Failed))
		}

		results := b.scanner.ScanAll(ctx, refs, progress)
		for _, res := range results {
			b.reportScanResult(res)
		}
		b.sender.Edit(msg.Chat.ID, status.MessageID, "✅ All requested indexing tasks finished.")
	}()
}

func (b *Bot) reportScanResult(res index.ChannelResult) {
	var resErr *index.ResolutionError
	var accErr *index.AccessError
	switch {
	case res.Err == nil:
		text := fmt.Sprintf(
			"✅ Indexing finished for %s (%d)\n\nAdded: %d new/updated media entries.\nSkipped: %d (non-media/other).\nFailed: %d (check logs).",
			res.Report.ChannelName, res.Report.ChannelID,
			res.Report.Added, res.Report.Skipped, res.Report.Failed)
		b.sender.Text(b.cfg.OwnerID, text)
		b.sender.Report(text)
	case errors.As(res.Err, &resErr):
		text := fmt.Sprintf(
			"❌ Could not access channel %s. Make sure the bot is a member and the reference is correct.\nDetails: %v",
			res.Ref, resErr.Unwrap())
		b.sender.Text(b.cfg.OwnerID, text)
		b.sender.Report(text)
	case errors.As(res.Err, &accErr):
		text := fmt.Sprintf("❌ Lost access to channel %s mid-scan; aborted.\nDetails: %v",
			accErr.Channel, accErr.Unwrap())
		b.sender.Text(b.cfg.OwnerID, text)
		b.sender.Report(text)
	default:
		text := fmt.Sprintf("❌ Indexing of %s failed: %v", res.Ref, res.Err)
		b.sender.Text(b.cfg.OwnerID, text)
		b.sender.Report(text)
	}
}

const clearAllPhrase = "YESDELETEALL"

func (b *Bot) handleClearIndex(ctx context.Context, msg *tgbotapi.Message) {
	target := strings.TrimSpace(msg.CommandArguments())
	if target == "" {
		b.sender.Text(msg.Chat.ID, "Usage: /clearindex <channel|all>")
		return
	}

	if strings.EqualFold(target, "all") {
		b.clearAllDeadline = time.Now().Add(30 * time.Second)
		b.sender.Text(msg.Chat.ID,
			"⚠️ This deletes ALL indexed media. Type "+clearAllPhrase+" within 30 seconds to confirm.")
		return
	}

	ref, err := chat.ParseRef(target)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "Invalid channel reference: "+target)
		return
	}
	channelID := ref.ID
	name := ref.String()
	if ref.Handle != "" {
		info, err := b.channels.ResolveChannel(ctx, ref)
		if err != nil {
			b.sender.Text(msg.Chat.ID, fmt.Sprintf("❌ Could not find channel %s: %v", target, err))
			return
		}
		channelID = info.ID
		name = info.Title
	}

	deleted, err := b.store.DeleteByChannel(ctx, channelID)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "❌ Failed to clear the index: "+err.Error())
		return
	}
	text := fmt.Sprintf("✅ Cleared %d indexed items for channel %s (%d).", deleted, name, channelID)
	b.sender.Text(msg.Chat.ID, text)
	b.sender.Report(text)
}

// tryClearAllConfirm consumes the clear-all confirmation phrase if the
// window is still open.
func (b *Bot) tryClearAllConfirm(ctx context.Context, msg *tgbotapi.Message) bool {
	if !b.isOwner(msg.From.ID) || b.clearAllDeadline.IsZero() {
		return false
	}
	if time.Now().After(b.clearAllDeadline) {
		b.clearAllDeadline = time.Time{}
		return false
	}
	if strings.TrimSpace(msg.Text) != clearAllPhrase {
		return false
	}
	b.clearAllDeadline = time.Time{}

	deleted, err := b.store.DeleteAll(ctx)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "❌ Failed to delete the index: "+err.Error())
		return true
	}
	b.sender.Text(msg.Chat.ID, fmt.Sprintf("✅ Deleted all (%d) indexed media items.", deleted))
	b.sender.Report("Owner cleared ALL indexed data.")
	return true
}

// --- Status ---

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	totalUsers, err := b.store.TotalUsers(ctx)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "Failed to retrieve bot status.")
		b.log.Error("status query failed", zap.Error(err))
		return
	}
	banned, _ := b.store.TotalBanned(ctx)
	totalMedia, _ := b.store.TotalMedia(ctx)

	forceSub := b.cfg.UpdatesChannel
	if forceSub == "" {
		forceSub = "disabled"
	}
	channels := strings.Join(b.cfg.IndexChannels, ", ")
	if channels == "" {
		channels = "none configured"
	}
	uptime := time.Since(b.startedAt).Round(time.Second)

	b.sender.Text(msg.Chat.ID, fmt.Sprintf(
		"✨ Bot Status\n\n📊 Users:\n- Total: %d\n- Active: %d\n- Banned: %d\n\n🎬 Media:\n- Indexed files: %d\n\n⚙️ Configuration:\n- Force subscribe: %s\n- Index channels: %s\n\n⏰ Uptime: %s",
		totalUsers, totalUsers-banned, banned, totalMedia, forceSub, channels, uptime))
}

// --- Broadcast ---

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" && msg.ReplyToMessage == nil {
		b.sender.Text(msg.Chat.ID, "Usage: /broadcast <message>, or reply to a message with /broadcast")
		return
	}

	users, err := b.store.ActiveUsers(ctx)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "Failed to load users: "+err.Error())
		return
	}
	if len(users) == 0 {
		b.sender.Text(msg.Chat.ID, "No active users found to broadcast to.")
		return
	}

	b.broadcastCancel.Store(false)
	status, err := b.sender.Send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"Starting broadcast to %d active users...\nSend /cancel to stop.", len(users))))
	if err != nil {
		return
	}

	// Runs off the update loop so /cancel is still delivered.
	go b.runBroadcast(ctx, msg, status, text, users)
}

func (b *Bot) runBroadcast(ctx context.Context, msg *tgbotapi.Message, status tgbotapi.Message, text string, users []store.User) {
	start := time.Now()
	sent, failed := 0, 0

	for _, u := range users {
		if b.broadcastCancel.Load() || ctx.Err() != nil {
			break
		}

		var err error
		if msg.ReplyToMessage != nil {
			_, err = b.sender.Send(tgbotapi.NewForward(u.UserID, msg.Chat.ID, msg.ReplyToMessage.MessageID))
		} else {
			_, err = b.sender.Send(tgbotapi.NewMessage(u.UserID, text))
		}
		if err != nil {
			failed++
			// Blocked the bot or deactivated the account: ban so future
			// broadcasts skip them.
			if berr := b.store.SetBanned(ctx, u.UserID, true); berr != nil {
				b.log.Warn("failed to ban unreachable user", zap.Int64("user_id", u.UserID), zap.Error(berr))
			}
			b.log.Warn("broadcast delivery failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		} else {
			sent++
		}

		if (sent+failed)%20 == 0 {
			b.sender.Edit(msg.Chat.ID, status.MessageID, fmt.Sprintf(
				"Broadcast in progress...\n\nSent: %d\nFailed: %d\nProcessed: %d / %d\n\nSend /cancel to stop.",
				sent, failed, sent+failed, len(users)))
		}
		time.Sleep(b.cfg.BroadcastSleep)
	}

	final := fmt.Sprintf("✅ Broadcast finished!\n\nSent: %d\nFailed: %d (unreachable users were banned)\nTotal time: %s",
		sent, failed, time.Since(start).Round(time.Second))
	b.sender.Text(msg.Chat.ID, final)
	b.sender.Report(final)
}

// --- Bans ---

func (b *Bot) handleBan(ctx context.Context, msg *tgbotapi.Message, ban bool) {
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) == 0 {
		if ban {
			b.sender.Text(msg.Chat.ID, "Usage: /ban <user_id> [reason]")
		} else {
			b.sender.Text(msg.Chat.ID, "Usage: /unban <user_id>")
		}
		return
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "User ID must be numeric.")
		return
	}
	if ban && (userID == b.cfg.OwnerID || userID == b.api.Self.ID) {
		b.sender.Text(msg.Chat.ID, "Cannot ban the owner or the bot itself.")
		return
	}

	if err := b.store.SetBanned(ctx, userID, ban); err != nil {
		b.sender.Text(msg.Chat.ID, "Failed to update ban status: "+err.Error())
		return
	}
	if ban {
		reason := "No reason specified."
		if len(parts) > 1 {
			reason = strings.Join(parts[1:], " ")
		}
		b.sender.Text(msg.Chat.ID, fmt.Sprintf("User %d has been banned. Reason: %s", userID, reason))
		b.sender.Report(fmt.Sprintf("User %d banned. Reason: %s", userID, reason))
	} else {
		b.sender.Text(msg.Chat.ID, fmt.Sprintf("User %d has been unbanned.", userID))
		b.sender.Report(fmt.Sprintf("User %d unbanned.", userID))
	}
}

func (b *Bot) handleBannedList(ctx context.Context, msg *tgbotapi.Message) {
	users, err := b.store.BannedUsers(ctx)
	if err != nil {
		b.sender.Text(msg.Chat.ID, "Failed to list banned users: "+err.Error())
		return
	}
	if len(users) == 0 {
		b.sender.Text(msg.Chat.ID, "No users are currently banned.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Banned users:\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "- %d (%s)\n", u.UserID, u.FirstName)
	}
	text := sb.String()
	if len(text) > 4096 {
		text = fmt.Sprintf("Found %d banned users; the list is too long to display here.", len(users))
	}
	b.sender.Text(msg.Chat.ID, text)
}

// --- Group search ---

const minQueryLen = 3

func (b *Bot) handleGroupQuery(ctx context.Context, msg *tgbotapi.Message) {
	query := strings.TrimSpace(msg.Text)
	if len([]rune(query)) < minQueryLen || msg.ViaBot != nil {
		return
	}

	banned, err := b.store.IsBanned(ctx, msg.From.ID)
	if err != nil {
		b.log.Warn("ban check failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}
	if banned {
		b.log.Info("ignoring message from banned user",
			zap.Int64("user_id", msg.From.ID), zap.Int64("chat_id", msg.Chat.ID))
		return
	}
	if !b.passesForceSub(ctx, msg) {
		return
	}
	if err := b.store.UpsertUser(ctx, msg.From.ID, msg.From.FirstName, msg.From.UserName); err != nil {
		b.log.Warn("failed to register user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}

	start := time.Now()
	results, err := b.resolver.Resolve(ctx, query, b.cfg.MaxResults)
	if err != nil {
		// Groups stay quiet on search failures to avoid noise.
		b.log.Error("search failed", zap.String("query", query), zap.Error(err))
		b.sender.Report(fmt.Sprintf("Search failed for %q in chat %d: %v", query, msg.Chat.ID, err))
		return
	}
	b.log.Info("search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))

	if len(results) == 0 {
		b.replyNotFound(msg, query)
		return
	}

	text, markup := b.formatResults(ctx, query, results)
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	reply.ReplyMarkup = markup
	reply.DisableWebPagePreview = true
	if _, err := b.sender.Send(reply); err != nil {
		b.log.Warn("failed to send search results", zap.Error(err))
	}
}

func (b *Bot) replyNotFound(msg *tgbotapi.Message, query string) {
	// Without a request button a "not found" reply is just group spam.
	if b.cfg.RequestMovieURL == "" {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID,
		strings.ReplaceAll(b.cfg.NotFoundMsg, "{query}", query))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(b.cfg.RequestMovieButtonText, b.cfg.RequestMovieURL),
		),
	)
	reply.DisableWebPagePreview = true
	if _, err := b.sender.Send(reply); err != nil {
		b.log.Warn("failed to send not-found reply", zap.Error(err))
	}
}

// --- Callbacks ---

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	switch cb.Data {
	case "help_cb":
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Warn("failed to answer callback", zap.Error(err))
		}
		if cb.Message != nil {
			b.sender.Text(cb.Message.Chat.ID, helpText)
		}
	case "close_cb":
		if cb.Message != nil {
			if _, err := b.api.Request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)); err != nil {
				b.log.Warn("failed to delete message", zap.Error(err))
			}
		}
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "Closed.")); err != nil {
			b.log.Warn("failed to answer callback", zap.Error(err))
		}
	default:
		if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID, "Invalid button.")); err != nil {
			b.log.Warn("failed to answer callback", zap.Error(err))
		}
	}
}
