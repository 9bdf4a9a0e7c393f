package chat

import (
	"context"
	"errors"
	"time"

	"github.com/gotd/td/tgerr"
)

// MediaKind classifies the attachment of a channel message. Only video,
// document and audio are eligible for indexing.
type MediaKind int

const (
	KindNone MediaKind = iota
	KindVideo
	KindDocument
	KindAudio
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	case KindAudio:
		return "audio"
	default:
		return "none"
	}
}

// Message is one channel history entry as the scanner sees it. Kind is
// KindNone for anything that carries no indexable attachment (text-only
// messages, photos, voice notes, service messages). Caption is the
// HTML-rendered form when the message carries formatting entities;
// CaptionText is always the bare text and is what search tags derive from.
type Message struct {
	ID          int64
	Caption     string
	CaptionText string
	Kind        MediaKind
	FileID      string
	FileName    string
	FileSize    int64
}

// ChannelInfo is a resolved channel. ID is the canonical -100-prefixed form.
type ChannelInfo struct {
	ID     int64
	Title  string
	Handle string // empty for private channels

	accessHash int64
}

// ErrEndOfHistory terminates history iteration.
var ErrEndOfHistory = errors.New("end of history")

// HistoryIterator delivers channel messages lazily, newest first, in the
// order the transport pages them. Next returns ErrEndOfHistory when the
// channel is exhausted.
type HistoryIterator interface {
	Next(ctx context.Context) (Message, error)
}

// Resolver resolves a channel reference to its canonical identity.
type Resolver interface {
	ResolveChannel(ctx context.Context, ref ChannelRef) (ChannelInfo, error)
}

// HistorySource opens a history stream over a resolved channel.
type HistorySource interface {
	History(info ChannelInfo) HistoryIterator
}

// SubStatus is the outcome of a membership check. Indeterminate means the
// check itself failed; callers decide whether to let the user through.
type SubStatus int

const (
	Subscribed SubStatus = iota
	NotSubscribed
	CheckIndeterminate
)

// MembershipChecker answers whether a user is a member of a channel.
type MembershipChecker interface {
	CheckMember(ctx context.Context, ref ChannelRef, userID int64) SubStatus
}

// FloodWait reports whether err is a transport rate-limit signal, and the
// mandated wait duration if so.
func FloodWait(err error) (time.Duration, bool) {
	return tgerr.AsFloodWait(err)
}

// IsAccessDenied reports whether err means the channel became inaccessible
// to the bot.
func IsAccessDenied(err error) bool {
	return tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_INVALID", "CHAT_ADMIN_REQUIRED")
}
