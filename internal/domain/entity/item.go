// Package entity defines the core domain entities and sentinel errors for the bot.
// The central business object is NewsItem, the normalized form every provider
// reduces its source data to.
package entity

// NewsItem is a single piece of news in normalized form.
// Link doubles as the item's identity: two items are the same iff their
// links compare equal byte-for-byte. Only the link is ever persisted
// (in a provider's blacklist); the item itself is transient.
type NewsItem struct {
	Title    string
	Link     string
	Provider string
}

// Valid reports whether the item carries the fields required for delivery.
func (n NewsItem) Valid() bool {
	return n.Title != "" && n.Link != ""
}
