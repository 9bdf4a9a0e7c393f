package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
)

// historyBatch is the page size for MessagesGetHistory.
const historyBatch = 100

// channelIDOffset converts between raw MTProto channel IDs and the canonical
// -100-prefixed form the rest of the system uses.
const channelIDOffset = int64(1000000000000)

func canonicalID(raw int64) int64 {
	return -(channelIDOffset + raw)
}

func rawChannelID(canonical int64) int64 {
	if canonical < -channelIDOffset {
		return -canonical - channelIDOffset
	}
	if canonical < 0 {
		return -canonical
	}
	return canonical
}

// Client is the MTProto side of the bot: everything the Bot API cannot do —
// resolving channels, streaming full history, membership checks.
type Client struct {
	client *telegram.Client
	token  string
	log    *zap.Logger

	// raw channel ID -> access hash, filled during resolution.
	hashes sync.Map

	ready  chan struct{}
	cancel context.CancelFunc
}

func NewClient(apiID int, apiHash, botToken string, log *zap.Logger) *Client {
	c := &Client{
		token: botToken,
		log:   log,
		ready: make(chan struct{}),
	}
	c.client = telegram.NewClient(apiID, apiHash, telegram.Options{})
	return c
}

// Run connects, authorizes with the bot token and blocks until ctx is
// cancelled. Callers gate MTProto use on Ready.
func (c *Client) Run(ctx context.Context) error {
	clientCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	err := c.client.Run(clientCtx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := c.client.Auth().Bot(ctx, c.token); err != nil {
				return fmt.Errorf("bot auth: %w", err)
			}
		}
		c.log.Info("mtproto client authorized")
		close(c.ready)
		<-ctx.Done()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mtproto client: %w", err)
	}
	return nil
}

// Ready is closed once the client is authorized.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Client) waitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ready:
		return nil
	}
}

// ResolveChannel resolves a reference to the channel's canonical identity,
// caching the access hash for later history and membership calls.
func (c *Client) ResolveChannel(ctx context.Context, ref ChannelRef) (ChannelInfo, error) {
	if err := c.waitReady(ctx); err != nil {
		return ChannelInfo{}, err
	}
	if ref.Handle != "" {
		return c.resolveHandle(ctx, ref.Handle)
	}
	return c.resolveID(ctx, ref.ID)
}

func (c *Client) resolveHandle(ctx context.Context, handle string) (ChannelInfo, error) {
	res, err := c.client.API().ContactsResolveUsername(ctx, handle)
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("resolve @%s: %w", handle, err)
	}

	peer, ok := res.Peer.(*tg.PeerChannel)
	if !ok {
		return ChannelInfo{}, fmt.Errorf("@%s is not a channel (got %T)", handle, res.Peer)
	}
	for _, chat := range res.Chats {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == peer.ChannelID {
			return c.infoFromChannel(ch), nil
		}
	}
	return ChannelInfo{}, fmt.Errorf("resolve @%s: channel missing from response", handle)
}

func (c *Client) resolveID(ctx context.Context, id int64) (ChannelInfo, error) {
	raw := rawChannelID(id)

	// A zero access hash works for channels the bot is a member of, which
	// is exactly the set it can index.
	var hash int64
	if h, ok := c.hashes.Load(raw); ok {
		hash = h.(int64)
	}

	res, err := c.client.API().ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: raw, AccessHash: hash},
	})
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("resolve channel %d: %w", id, err)
	}
	for _, chat := range res.GetChats() {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == raw {
			return c.infoFromChannel(ch), nil
		}
	}
	return ChannelInfo{}, fmt.Errorf("resolve channel %d: not found", id)
}

func (c *Client) infoFromChannel(ch *tg.Channel) ChannelInfo {
	c.hashes.Store(ch.ID, ch.AccessHash)
	title := ch.Title
	if title == "" {
		title = ch.Username
	}
	return ChannelInfo{
		ID:         canonicalID(ch.ID),
		Title:      title,
		Handle:     ch.Username,
		accessHash: ch.AccessHash,
	}
}

func (c *Client) inputChannel(info ChannelInfo) *tg.InputChannel {
	raw := rawChannelID(info.ID)
	hash := info.accessHash
	if h, ok := c.hashes.Load(raw); ok {
		hash = h.(int64)
	}
	return &tg.InputChannel{ChannelID: raw, AccessHash: hash}
}

// History opens a lazy stream over the channel's full message history,
// newest first. Pages are fetched on demand; nothing is buffered beyond one
// page. Flood-wait and access errors surface from Next for the caller to
// classify.
func (c *Client) History(info ChannelInfo) HistoryIterator {
	in := c.inputChannel(info)
	return &historyIter{
		api: c.client.API(),
		peer: &tg.InputPeerChannel{
			ChannelID:  in.ChannelID,
			AccessHash: in.AccessHash,
		},
	}
}

type historyIter struct {
	api      *tg.Client
	peer     tg.InputPeerClass
	buf      []Message
	offsetID int
	done     bool
}

func (it *historyIter) Next(ctx context.Context) (Message, error) {
	for len(it.buf) == 0 {
		if it.done {
			return Message{}, ErrEndOfHistory
		}
		if err := it.fetch(ctx); err != nil {
			return Message{}, err
		}
	}
	m := it.buf[0]
	it.buf = it.buf[1:]
	return m, nil
}

func (it *historyIter) fetch(ctx context.Context) error {
	res, err := it.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     it.peer,
		OffsetID: it.offsetID,
		Limit:    historyBatch,
	})
	if err != nil {
		return err
	}

	var msgs []tg.MessageClass
	switch r := res.(type) {
	case *tg.MessagesChannelMessages:
		msgs = r.Messages
	case *tg.MessagesMessages:
		msgs = r.Messages
	case *tg.MessagesMessagesSlice:
		msgs = r.Messages
	default:
		return fmt.Errorf("unexpected history result type: %T", res)
	}

	if len(msgs) == 0 {
		it.done = true
		return nil
	}
	for _, raw := range msgs {
		switch m := raw.(type) {
		case *tg.Message:
			it.offsetID = m.ID
			it.buf = append(it.buf, classify(m))
		case *tg.MessageService:
			it.offsetID = m.ID
			it.buf = append(it.buf, Message{ID: int64(m.ID)})
		case *tg.MessageEmpty:
			it.offsetID = m.ID
		}
	}
	if len(msgs) < historyBatch {
		it.done = true
	}
	return nil
}

// classify extracts the attachment metadata the indexer cares about.
// Anything that is not a plain video, document or audio file (photos, voice
// notes, round videos, stickers) comes back as KindNone.
func classify(m *tg.Message) Message {
	msg := Message{
		ID:          int64(m.ID),
		Caption:     captionHTML(m.Message, m.Entities),
		CaptionText: m.Message,
	}

	media, ok := m.Media.(*tg.MessageMediaDocument)
	if !ok {
		return msg
	}
	doc, ok := media.Document.AsNotEmpty()
	if !ok {
		return msg
	}

	msg.Kind = KindDocument
	msg.FileID = fmt.Sprintf("%d:%d", doc.ID, doc.AccessHash)
	msg.FileSize = doc.Size

	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			msg.FileName = a.FileName
		case *tg.DocumentAttributeVideo:
			if a.RoundMessage {
				msg.Kind = KindNone
			} else {
				msg.Kind = KindVideo
			}
		case *tg.DocumentAttributeAudio:
			if a.Voice {
				msg.Kind = KindNone
			} else {
				msg.Kind = KindAudio
			}
		case *tg.DocumentAttributeSticker:
			msg.Kind = KindNone
		}
	}
	return msg
}

// CheckMember answers whether userID is a member of the channel. Errors on
// the check itself are reported as CheckIndeterminate, never as a denial.
func (c *Client) CheckMember(ctx context.Context, ref ChannelRef, userID int64) SubStatus {
	info, err := c.ResolveChannel(ctx, ref)
	if err != nil {
		c.log.Warn("membership check: channel resolution failed",
			zap.String("channel", ref.String()), zap.Error(err))
		return CheckIndeterminate
	}

	res, err := c.client.API().ChannelsGetParticipant(ctx, &tg.ChannelsGetParticipantRequest{
		Channel:     c.inputChannel(info),
		Participant: &tg.InputPeerUser{UserID: userID},
	})
	if err != nil {
		if tgerr.Is(err, "USER_NOT_PARTICIPANT") {
			return NotSubscribed
		}
		c.log.Warn("membership check failed",
			zap.String("channel", ref.String()),
			zap.Int64("user_id", userID), zap.Error(err))
		return CheckIndeterminate
	}

	switch p := res.Participant.(type) {
	case *tg.ChannelParticipantLeft:
		return NotSubscribed
	case *tg.ChannelParticipantBanned:
		if p.Left {
			return NotSubscribed
		}
		return Subscribed // restricted but still a member
	default:
		return Subscribed
	}
}
