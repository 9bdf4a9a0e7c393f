package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	cases := []struct {
		in   string
		want ChannelRef
	}{
		{"@moviehub", ChannelRef{Handle: "moviehub"}},
		{"moviehub", ChannelRef{Handle: "moviehub"}},
		{"  @moviehub  ", ChannelRef{Handle: "moviehub"}},
		{"-1001234567890", ChannelRef{ID: -1001234567890}},
		{"123456", ChannelRef{ID: 123456}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRef(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRefEmpty(t *testing.T) {
	_, err := ParseRef("   ")
	assert.Error(t, err)
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "@moviehub", RefFromHandle("moviehub").String())
	assert.Equal(t, "-1001234567890", RefFromID(-1001234567890).String())
}

func TestPrivateID(t *testing.T) {
	stripped, ok := RefFromID(-1001234567890).PrivateID()
	require.True(t, ok)
	assert.Equal(t, "1234567890", stripped)

	_, ok = RefFromID(-987654).PrivateID()
	assert.False(t, ok, "plain negative IDs carry no -100 prefix")

	_, ok = RefFromID(123456).PrivateID()
	assert.False(t, ok)

	_, ok = RefFromHandle("moviehub").PrivateID()
	assert.False(t, ok)
}

func TestMediaKindString(t *testing.T) {
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "document", KindDocument.String())
	assert.Equal(t, "audio", KindAudio.String())
	assert.Equal(t, "none", KindNone.String())
}
