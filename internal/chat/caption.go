package chat

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf16"

	"github.com/gotd/td/tg"
)

// captionHTML renders a message text with its formatting entities as HTML,
// so stored captions keep their original formatting. A text without entities
// passes through untouched. Entity offsets are UTF-16 code units, as the
// transport defines them.
func captionHTML(text string, entities []tg.MessageEntityClass) string {
	if len(entities) == 0 {
		return text
	}
	units := utf16.Encode([]rune(text))

	opens := make(map[int][]string)
	closes := make(map[int][]string)
	for _, e := range entities {
		var open, clos string
		switch ent := e.(type) {
		case *tg.MessageEntityBold:
			open, clos = "<b>", "</b>"
		case *tg.MessageEntityItalic:
			open, clos = "<i>", "</i>"
		case *tg.MessageEntityUnderline:
			open, clos = "<u>", "</u>"
		case *tg.MessageEntityStrike:
			open, clos = "<s>", "</s>"
		case *tg.MessageEntitySpoiler:
			open, clos = `<span class="tg-spoiler">`, "</span>"
		case *tg.MessageEntityCode:
			open, clos = "<code>", "</code>"
		case *tg.MessageEntityPre:
			open, clos = "<pre>", "</pre>"
		case *tg.MessageEntityBlockquote:
			open, clos = "<blockquote>", "</blockquote>"
		case *tg.MessageEntityTextURL:
			open, clos = fmt.Sprintf(`<a href="%s">`, html.EscapeString(ent.URL)), "</a>"
		default:
			continue
		}
		off, end := e.GetOffset(), e.GetOffset()+e.GetLength()
		if off < 0 || end > len(units) || off >= end {
			continue
		}
		opens[off] = append(opens[off], open)
		// Closing tags go innermost-first so nested entities stay balanced.
		closes[end] = append([]string{clos}, closes[end]...)
	}
	if len(opens) == 0 {
		return text
	}

	var sb strings.Builder
	prev := 0
	flush := func(to int) {
		if to > prev {
			sb.WriteString(html.EscapeString(string(utf16.Decode(units[prev:to]))))
			prev = to
		}
	}
	for pos := 0; pos <= len(units); pos++ {
		cl, hasClose := closes[pos]
		op, hasOpen := opens[pos]
		if !hasClose && !hasOpen {
			continue
		}
		flush(pos)
		for _, t := range cl {
			sb.WriteString(t)
		}
		for _, t := range op {
			sb.WriteString(t)
		}
	}
	flush(len(units))
	return sb.String()
}
