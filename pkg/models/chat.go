// Package models holds the plain data types persisted by the store and
// passed between Hermes components. They carry no behavior beyond small
// constructors and validation helpers.
package models

import (
	"encoding/json"
	"time"
)

// MessageType enumerates the chat-object kinds the source emits (spec §3).
type MessageType string

// Known message types. The set is open-ended (the source may emit other
// sponsorship/ticker variants); callers should not assume exhaustiveness.
const (
	MessageTypeText              MessageType = "text_message"
	MessageTypePaid               MessageType = "paid_message"
	MessageTypeTickerPaidItem     MessageType = "ticker_paid_message_item"
	MessageTypeMembershipItem     MessageType = "membership_item"
	MessageTypeSponsorshipsGift   MessageType = "sponsorships_gift_redemption_announcement"
)

// PaidMessageTypes is the boundary set used by the "paid" filter (spec §8):
// includes paid_message and ticker_paid_message_item, excludes all others.
var PaidMessageTypes = map[MessageType]bool{
	MessageTypePaid:           true,
	MessageTypeTickerPaidItem: true,
}

// IsPaid reports whether t is one of the two paid message types.
func (t MessageType) IsPaid() bool {
	return PaidMessageTypes[t]
}

// Emote is a single YouTube custom emote reference embedded in a message.
type Emote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Money is the optional superchat/supersticker amount on a paid message.
type Money struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// BadgeIcon is one icon resolution for an author badge.
type BadgeIcon struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Badge is a single author badge (e.g. membership tier, moderator, owner).
type Badge struct {
	Title string      `json:"title"`
	Icons []BadgeIcon `json:"icons"`
}

// RawData is the tagged-union view of a chat object's otherwise-unschematized
// payload (spec §9 "Dynamic payload fields"): the fields Hermes actually
// consumes are typed, everything else is preserved opaquely for forward
// compatibility so round-tripping a backup file never loses data.
type RawData struct {
	Money   *Money          `json:"money,omitempty"`
	Badges  []Badge         `json:"badges,omitempty"`
	Opaque  json.RawMessage `json:"opaque,omitempty"`
}

// ChatMessage is the persisted representation of one chat object (spec §3).
// message_id is the natural key; processed_at is nil until stage-A of the
// ETL core has run on this row.
type ChatMessage struct {
	MessageID     string
	LiveStreamID  string
	AuthorID      string
	AuthorName    string
	MessageType   MessageType
	Message       string
	TimestampUsec int64
	PublishedAt   time.Time
	Emotes        []Emote
	RawData       RawData

	ProcessedText *string
	Tokens        []string
	UnicodeEmojis []string
	ProcessedAt   *time.Time
}

// IsProcessed reports whether stage-A has already run on this row.
// Invariant (spec §3): processed_at is nil iff tokens is nil.
func (m *ChatMessage) IsProcessed() bool {
	return m.ProcessedAt != nil
}
