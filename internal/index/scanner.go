package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"autofilter/internal/chat"
	"autofilter/internal/search"
	"autofilter/internal/store"
)

// MediaWriter is the slice of the media store the scanner writes. The
// scanner is the only writer of media records in the system.
type MediaWriter interface {
	UpsertMedia(ctx context.Context, rec store.MediaRecord) error
	SetLastIndexedID(ctx context.Context, channelID, messageID int64) error
}

// Report carries the running counters of one channel scan.
type Report struct {
	ChannelID   int64
	ChannelName string

	Added   int // eligible messages upserted
	Skipped int // text-only, photos, unsupported kinds
	Failed  int // eligible messages whose upsert failed

	LastMessageID int64 // highest message ID seen, for the checkpoint
}

func (r Report) Total() int {
	return r.Added + r.Skipped + r.Failed
}

// ProgressFunc receives periodic progress reports during a scan. It is a
// liveness signal only; errors in delivery do not affect the scan.
type ProgressFunc func(Report)

// ResolutionError means the channel identity could not be resolved. The scan
// aborted before any writes.
type ResolutionError struct {
	Ref chat.ChannelRef
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve channel %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// AccessError means the channel became inaccessible mid-scan. The scan for
// that channel aborted; records already upserted are kept.
type AccessError struct {
	Channel string
	Err     error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("lost access to channel %s: %v", e.Channel, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Scanner walks a channel's full message history and feeds the media store.
// Every trigger re-scans the whole history; upserts keyed by
// (channel_id, message_id) make the re-scan idempotent and self-healing, so
// the stored checkpoint is written but never used as a resume offset.
type Scanner struct {
	resolver chat.Resolver
	history  chat.HistorySource
	writer   MediaWriter
	log      *zap.Logger

	progressEvery int
	floodMargin   time.Duration
	cooldown      time.Duration

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScanner(resolver chat.Resolver, history chat.HistorySource, writer MediaWriter, log *zap.Logger) *Scanner {
	return &Scanner{
		resolver:      resolver,
		history:       history,
		writer:        writer,
		log:           log,
		progressEvery: 100,
		floodMargin:   5 * time.Second,
		cooldown:      5 * time.Second,
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ScanChannel resolves ref and indexes every eligible message in its
// history. Flood waits suspend the scan for at least the signaled duration
// and restart iteration from the top; counters reset on restart so the final
// report reflects one full pass. A single failed upsert never aborts the
// scan.
func (s *Scanner) ScanChannel(ctx context.Context, ref chat.ChannelRef, progress ProgressFunc) (Report, error) {
	info, err := s.resolver.ResolveChannel(ctx, ref)
	if err != nil {
		return Report{}, &ResolutionError{Ref: ref, Err: err}
	}
	s.log.Info("scan started",
		zap.String("channel", info.Title),
		zap.Int64("channel_id", info.ID))

	var rep Report
	for {
		rep = Report{ChannelID: info.ID, ChannelName: info.Title}
		err := s.scanOnce(ctx, info, &rep, progress)
		if err == nil {
			break
		}
		if wait, ok := chat.FloodWait(err); ok {
			pause := wait + s.floodMargin
			s.log.Warn("flood wait during scan, pausing",
				zap.String("channel", info.Title),
				zap.Duration("pause", pause))
			if serr := s.sleep(ctx, pause); serr != nil {
				return rep, serr
			}
			// Iteration restarts from the top of the channel; upserts
			// already committed stay durable.
			continue
		}
		if chat.IsAccessDenied(err) {
			return rep, &AccessError{Channel: info.Title, Err: err}
		}
		return rep, fmt.Errorf("scan of %s: %w", info.Title, err)
	}

	if rep.LastMessageID != 0 {
		if err := s.writer.SetLastIndexedID(ctx, info.ID, rep.LastMessageID); err != nil {
			s.log.Warn("failed to store channel checkpoint",
				zap.Int64("channel_id", info.ID), zap.Error(err))
		}
	}
	s.log.Info("scan finished",
		zap.String("channel", info.Title),
		zap.Int("added", rep.Added),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed))
	return rep, nil
}

func (s *Scanner) scanOnce(ctx context.Context, info chat.ChannelInfo, rep *Report, progress ProgressFunc) error {
	it := s.history.History(info)
	for {
		msg, err := it.Next(ctx)
		if errors.Is(err, chat.ErrEndOfHistory) {
			return nil
		}
		if err != nil {
			return err
		}

		if msg.ID > rep.LastMessageID {
			rep.LastMessageID = msg.ID
		}

		if msg.Kind == chat.KindNone {
			rep.Skipped++
		} else if err := s.indexMessage(ctx, info, msg); err != nil {
			rep.Failed++
			s.log.Error("failed to index message",
				zap.Int64("channel_id", info.ID),
				zap.Int64("message_id", msg.ID),
				zap.Error(err))
		} else {
			rep.Added++
		}

		if progress != nil && rep.Total()%s.progressEvery == 0 {
			progress(*rep)
		}
	}
}

func (s *Scanner) indexMessage(ctx context.Context, info chat.ChannelInfo, msg chat.Message) error {
	name := msg.FileName
	if name == "" {
		name = synthesizeName(msg.Kind, msg.ID)
	}
	return s.writer.UpsertMedia(ctx, store.MediaRecord{
		ChannelID:  info.ID,
		MessageID:  msg.ID,
		FileID:     msg.FileID,
		FileName:   name,
		Caption:    msg.Caption,
		FileType:   msg.Kind.String(),
		FileSize:   msg.FileSize,
		SearchTags: search.Tags(name, msg.CaptionText),
	})
}

// synthesizeName guarantees every record has a non-empty display name even
// when the transport provides none.
func synthesizeName(kind chat.MediaKind, messageID int64) string {
	id := strconv.FormatInt(messageID, 10)
	switch kind {
	case chat.KindVideo:
		return "video_" + id + ".mp4"
	case chat.KindAudio:
		return "audio_" + id + ".mp3"
	default:
		return "document_" + id
	}
}

// ChannelResult pairs one channel of a batch with its outcome.
type ChannelResult struct {
	Ref    chat.ChannelRef
	Report Report
	Err    error
}

// ScanAll scans channels strictly sequentially with a cooldown pause in
// between, so burst access across channels does not trip rate limits. One
// channel's failure does not abort the rest of the batch.
func (s *Scanner) ScanAll(ctx context.Context, refs []chat.ChannelRef, progress ProgressFunc) []ChannelResult {
	results := make([]ChannelResult, 0, len(refs))
	for i, ref := range refs {
		if i > 0 {
			if err := s.sleep(ctx, s.cooldown); err != nil {
				results = append(results, ChannelResult{Ref: ref, Err: err})
				return results
			}
		}
		rep, err := s.ScanChannel(ctx, ref, progress)
		results = append(results, ChannelResult{Ref: ref, Report: rep, Err: err})
	}
	return results
}
