// Package chatsource defines the Chat Stream Ingestor's view of a live
// chat feed: an opaque pull-based iterator over raw chat actions, plus
// the YouTube video-ID extraction helper used to resolve a watch,
// youtu.be or live URL down to the ID the iterator is constructed with.
package chatsource

import (
	"context"
	"errors"
	"time"
)

// ErrStreamEnded is returned by Next once the live chat has ended (the
// broadcast finished, or the watched video was never or is no longer
// live) and no further messages will arrive.
var ErrStreamEnded = errors.New("chatsource: stream ended")

// RawAction is one decoded chat action delivered by the iterator:
// either a renderable chat item or a paid/membership event. Its shape
// intentionally mirrors the untyped innertube action payload rather than
// Hermes's own ChatMessage model — mapping RawAction onto a
// models.ChatMessage is the Ingestor's job, not the iterator's.
type RawAction struct {
	MessageID     string
	AuthorID      string
	AuthorName    string
	MessageType   string
	Message       string
	TimestampUsec int64
	Emotes        []RawEmote
	Money         *RawMoney
	Badges        []RawBadge
}

// RawEmote is a custom emoji reference embedded in a chat message.
type RawEmote struct {
	Name string
	URL  string
}

// RawMoney is the parsed Super Chat / Super Sticker amount.
type RawMoney struct {
	Currency string
	Amount   string
}

// RawBadgeIcon is one icon variant attached to a RawBadge.
type RawBadgeIcon struct {
	ID  string
	URL string
}

// RawBadge is an author badge (member tier, moderator, verified, ...).
type RawBadge struct {
	Title string
	Icons []RawBadgeIcon
}

// Iterator pulls chat actions from a live stream's chat feed one at a
// time. Implementations own the underlying transport (HTTP polling, a
// websocket, or anything else) and are free to buffer internally; Next
// blocks until an action is available, the context is cancelled, or the
// stream ends.
//
// The wire protocol a concrete Iterator speaks is deliberately out of
// scope here — only the pull contract the rest of C2 depends on is
// specified.
type Iterator interface {
	// Next blocks until the next chat action is available. It returns
	// ErrStreamEnded once the chat has permanently ended, or a wrapped
	// context error if ctx is cancelled first.
	Next(ctx context.Context) (*RawAction, error)

	// Close releases any resources held by the iterator (connections,
	// goroutines). It is safe to call Close more than once.
	Close() error
}

// NewFunc constructs an Iterator for a given live video ID, used so the
// Ingestor and its tests can depend on a constructor type rather than a
// concrete transport implementation.
type NewFunc func(ctx context.Context, videoID string) (Iterator, error)

// heartbeatInterval is the expected upper bound between successive Next
// calls returning under normal operation; callers use it to size their
// own watchdog timeouts relative to the iterator's natural cadence.
const heartbeatInterval = 10 * time.Second

// HeartbeatInterval returns the expected upper bound between successive
// chat actions under normal operation.
func HeartbeatInterval() time.Duration { return heartbeatInterval }
