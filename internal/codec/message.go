package codec

import (
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// TagSubject carries a message subject.
const TagSubject = "subject"

// MessageRecipient is one "p" tag of a direct message.
type MessageRecipient struct {
	PublicKey string `json:"public_key"`
	RelayURL  string `json:"relay_url,omitempty"`
}

// MessageReply points at the message being answered.
type MessageReply struct {
	ID    string `json:"id"`
	Relay string `json:"relay,omitempty"`
}

// Message is a plaintext chat message. It is the inner event of a sealed
// direct message; sealing and wrapping happen outside this package.
type Message struct {
	Recipients []MessageRecipient `json:"recipients"`
	Content    string             `json:"content"`
	ReplyTo    *MessageReply      `json:"reply_to,omitempty"`
	Subject    string             `json:"subject,omitempty"`
}

func (m Message) validate() error {
	if len(m.Recipients) == 0 {
		return emptyField("recipients")
	}
	for _, r := range m.Recipients {
		if strings.TrimSpace(r.PublicKey) == "" {
			return emptyField("recipients.public_key")
		}
	}
	if m.ReplyTo != nil {
		if err := requireText(m.ReplyTo.ID, "reply_to.id"); err != nil {
			return err
		}
	}
	return requireText(m.Content, "content")
}

// EncodeMessage encodes a message with one "p" tag per recipient, an
// optional "e" reply tag and an optional subject.
func EncodeMessage(m Message) (wire.Parts, error) {
	if err := m.validate(); err != nil {
		return wire.Parts{}, err
	}
	tags := make(wire.Tags, 0, len(m.Recipients)+2)
	for _, r := range m.Recipients {
		tag := wire.NewTag(TagP, r.PublicKey)
		if strings.TrimSpace(r.RelayURL) != "" {
			tag = append(tag, r.RelayURL)
		}
		tags = append(tags, tag)
	}
	if m.ReplyTo != nil {
		tag := wire.NewTag(TagE, m.ReplyTo.ID)
		if strings.TrimSpace(m.ReplyTo.Relay) != "" {
			tag = append(tag, m.ReplyTo.Relay)
		}
		tags = append(tags, tag)
	}
	tags = optionalTag(tags, TagSubject, m.Subject)
	return finish(KindMessage, m.Content, tags), nil
}

// DecodeMessage decodes a message. Recipients come back in canonical tag
// order; a blank relay position is an error.
func DecodeMessage(kind uint32, content string, tags wire.Tags) (Message, error) {
	if kind != KindMessage {
		return Message{}, invalidKind("14", kind)
	}
	tags = wire.Canonicalize(tags)
	if strings.TrimSpace(content) == "" {
		return Message{}, invalidTag("content", nil)
	}
	m := Message{Content: content}
	for _, t := range tags.FindAll(TagP) {
		if len(t) < 2 || t[1] == "" {
			return Message{}, invalidTag(TagP, nil)
		}
		r := MessageRecipient{PublicKey: t[1]}
		if len(t) > 2 {
			if t[2] == "" {
				return Message{}, invalidTag(TagP, nil)
			}
			r.RelayURL = t[2]
		}
		m.Recipients = append(m.Recipients, r)
	}
	if len(m.Recipients) == 0 {
		return Message{}, missingTag(TagP)
	}
	if t, ok := tags.Find(TagE); ok {
		if len(t) < 2 || t[1] == "" {
			return Message{}, invalidTag(TagE, nil)
		}
		reply := &MessageReply{ID: t[1]}
		if len(t) > 2 {
			if t[2] == "" {
				return Message{}, invalidTag(TagE, nil)
			}
			reply.Relay = t[2]
		}
		m.ReplyTo = reply
	}
	if t, ok := tags.Find(TagSubject); ok {
		if len(t) < 2 || t[1] == "" {
			return Message{}, invalidTag(TagSubject, nil)
		}
		m.Subject = t[1]
	}
	return m, nil
}

// GeoChat tag values.
const (
	TagNickname = "n"
	teleport    = "teleport"
)

// GeoChat is an ephemeral message posted to a geohash channel.
type GeoChat struct {
	Geohash    string `json:"geohash"`
	Content    string `json:"content"`
	Nickname   string `json:"nickname,omitempty"`
	Teleported bool   `json:"teleported,omitempty"`
}

// EncodeGeoChat encodes a geochat message. Teleported senders carry a
// ["t","teleport"] tag.
func EncodeGeoChat(g GeoChat) (wire.Parts, error) {
	if err := requireText(g.Geohash, "geohash"); err != nil {
		return wire.Parts{}, err
	}
	if err := requireText(g.Content, "content"); err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{wire.NewTag(TagG, strings.TrimSpace(g.Geohash))}
	tags = optionalTag(tags, TagNickname, strings.TrimSpace(g.Nickname))
	if g.Teleported {
		tags = append(tags, wire.NewTag(TagT, teleport))
	}
	return finish(KindGeoChat, g.Content, tags), nil
}

// DecodeGeoChat decodes a geochat message. Any "t" tag other than
// "teleport" is ignored.
func DecodeGeoChat(kind uint32, content string, tags wire.Tags) (GeoChat, error) {
	if kind != KindGeoChat {
		return GeoChat{}, invalidKind("20000", kind)
	}
	tags = wire.Canonicalize(tags)
	if strings.TrimSpace(content) == "" {
		return GeoChat{}, invalidTag("content", nil)
	}
	g := GeoChat{Content: content}
	t, ok := tags.Find(TagG)
	if !ok {
		return GeoChat{}, missingTag(TagG)
	}
	if len(t) < 2 || t[1] == "" {
		return GeoChat{}, invalidTag(TagG, nil)
	}
	g.Geohash = t[1]
	if t, ok := tags.Find(TagNickname); ok {
		if len(t) < 2 || t[1] == "" {
			return GeoChat{}, invalidTag(TagNickname, nil)
		}
		g.Nickname = t[1]
	}
	for _, t := range tags.FindAll(TagT) {
		if len(t) < 2 || t[1] == "" {
			return GeoChat{}, invalidTag(TagT, nil)
		}
		if strings.EqualFold(t[1], teleport) {
			g.Teleported = true
		}
	}
	return g, nil
}
