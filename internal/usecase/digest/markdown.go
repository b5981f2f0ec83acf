package digest

import (
	"strings"

	"technews-bot/internal/domain/entity"
)

// markdownV2Escaper escapes every character Telegram's MarkdownV2 parse mode
// reserves. Unescaped reserved characters make the Bot API reject the whole
// message, so titles and links always pass through here.
var markdownV2Escaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"~", `\~`,
	"`", "\\`",
	">", `\>`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	"=", `\=`,
	"|", `\|`,
	"{", `\{`,
	"}", `\}`,
	".", `\.`,
	"!", `\!`,
)

// EscapeMarkdownV2 returns s with all MarkdownV2-reserved characters
// backslash-escaped.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// FormatLine renders one news item as a MarkdownV2 digest line:
// provider name, then the title as a link.
func FormatLine(item entity.NewsItem) string {
	var b strings.Builder
	b.WriteString(EscapeMarkdownV2(item.Provider))
	b.WriteString(": [")
	b.WriteString(EscapeMarkdownV2(item.Title))
	b.WriteString("](")
	b.WriteString(EscapeMarkdownV2(item.Link))
	b.WriteString(")")
	return b.String()
}
