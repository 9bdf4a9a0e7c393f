package chat

import (
	"errors"
	"strconv"
	"strings"
)

// ChannelRef identifies a channel either by numeric ID (canonical
// -100-prefixed form for private/supergroup channels) or by public handle.
// Exactly one of the two is set.
type ChannelRef struct {
	ID     int64
	Handle string // without leading @
}

func RefFromID(id int64) ChannelRef {
	return ChannelRef{ID: id}
}

func RefFromHandle(handle string) ChannelRef {
	return ChannelRef{Handle: strings.TrimPrefix(handle, "@")}
}

// ParseRef interprets a channel argument as given by the owner: "@name",
// "name", or a numeric ID like -1001234567890.
func ParseRef(s string) (ChannelRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChannelRef{}, errors.New("empty channel reference")
	}
	if strings.HasPrefix(s, "@") {
		return RefFromHandle(s), nil
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return RefFromID(id), nil
	}
	return RefFromHandle(s), nil
}

func (r ChannelRef) String() string {
	if r.Handle != "" {
		return "@" + r.Handle
	}
	return strconv.FormatInt(r.ID, 10)
}

const privatePrefix = "-100"

// PrivateID returns the numeric ID with the -100 prefix stripped, as used in
// t.me/c/ deep links, and whether the ID actually carries that prefix.
func (r ChannelRef) PrivateID() (string, bool) {
	if r.ID >= 0 {
		return "", false
	}
	s := strconv.FormatInt(r.ID, 10)
	if strings.HasPrefix(s, privatePrefix) && len(s) > len(privatePrefix) {
		return s[len(privatePrefix):], true
	}
	return "", false
}
