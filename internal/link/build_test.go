package link

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"autofilter/internal/chat"
)

type stubResolver struct {
	info chat.ChannelInfo
	err  error
}

func (s *stubResolver) ResolveChannel(context.Context, chat.ChannelRef) (chat.ChannelInfo, error) {
	return s.info, s.err
}

func TestBuildPrivateChannelLink(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())

	got := b.Build(context.Background(), chat.RefFromID(-1001234567890), 42)

	assert.Equal(t, "https://t.me/c/1234567890/42", got)
}

func TestBuildPublicHandleLink(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())

	got := b.Build(context.Background(), chat.RefFromHandle("@moviehub"), 42)

	assert.Equal(t, "https://t.me/moviehub/42", got)
}

func TestBuildBareIDResolvesHandle(t *testing.T) {
	resolver := &stubResolver{info: chat.ChannelInfo{
		ID:     -1009876543210,
		Title:  "Movie Hub",
		Handle: "moviehub",
	}}
	b := NewBuilder(resolver, zap.NewNop())

	got := b.Build(context.Background(), chat.RefFromID(9876543210), 7)

	assert.Equal(t, "https://t.me/moviehub/7", got)
}

func TestBuildBareIDFallsBackWhenResolutionFails(t *testing.T) {
	resolver := &stubResolver{err: errors.New("CHANNEL_INVALID")}
	b := NewBuilder(resolver, zap.NewNop())

	got := b.Build(context.Background(), chat.RefFromID(-987654), 3)

	assert.Equal(t, "https://t.me/c/987654/3", got)
}
