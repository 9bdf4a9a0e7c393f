package link

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"autofilter/internal/chat"
)

const base = "https://t.me/"

// Builder derives deep links to channel messages. Private/supergroup IDs get
// the t.me/c/ form, public handles the plain t.me/<handle> form. For a bare
// numeric ID without the -100 prefix there is no reliable derivation: the
// builder asks the transport for the canonical handle and otherwise falls
// back to a best-effort private-style link, which may be dead for
// misclassified channels.
type Builder struct {
	resolver chat.Resolver
	log      *zap.Logger
}

func NewBuilder(resolver chat.Resolver, log *zap.Logger) *Builder {
	return &Builder{resolver: resolver, log: log}
}

func (b *Builder) Build(ctx context.Context, ref chat.ChannelRef, messageID int64) string {
	mid := strconv.FormatInt(messageID, 10)

	if ref.Handle != "" {
		return base + ref.Handle + "/" + mid
	}
	if stripped, ok := ref.PrivateID(); ok {
		return base + "c/" + stripped + "/" + mid
	}

	// Ambiguous bare numeric ID: try the canonical handle at build time.
	if b.resolver != nil {
		if info, err := b.resolver.ResolveChannel(ctx, ref); err == nil && info.Handle != "" {
			return base + info.Handle + "/" + mid
		} else if err != nil {
			b.log.Debug("link builder: channel resolution failed, using fallback",
				zap.Int64("channel_id", ref.ID), zap.Error(err))
		}
	}

	abs := ref.ID
	if abs < 0 {
		abs = -abs
	}
	return base + "c/" + strconv.FormatInt(abs, 10) + "/" + mid
}
