// Package preview relays editor and live-preview notifications between the
// peers looking at the same demo. Delivery is best effort: nothing is
// acknowledged, retried or ordered across peers.
package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type MessageType string

const (
	ContentUpdated MessageType = "CONTENT_UPDATED"
	SlideChanged   MessageType = "SLIDE_CHANGED"
)

var ErrInvalidMessage = errors.New("invalid preview message")

// Message is the typed envelope on the wire. Page is the 1-based page index
// of CONTENT_UPDATED; Slide is the 0-based slide position of SLIDE_CHANGED.
type Message struct {
	Type  MessageType `json:"type"`
	Page  *int        `json:"page,omitempty"`
	Slide *int        `json:"slide,omitempty"`
}

func ContentUpdatedMessage(page int) Message {
	return Message{Type: ContentUpdated, Page: &page}
}

func SlideChangedMessage(slide int) Message {
	return Message{Type: SlideChanged, Slide: &slide}
}

func (m Message) Valid() bool {
	switch m.Type {
	case ContentUpdated:
		return m.Page != nil && *m.Page >= 1
	case SlideChanged:
		return m.Slide != nil && *m.Slide >= 0
	}
	return false
}

func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if !m.Valid() {
		return Message{}, ErrInvalidMessage
	}
	return m, nil
}

// Poster is the sending half of a preview channel.
type Poster interface {
	Post(Message)
}

// Discard drops every message. Used when no preview is attached.
type Discard struct{}

func (Discard) Post(Message) {}

// Endpoint turns an API base URL into the relay URL for one demo.
func Endpoint(baseURL string, demoID int64) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + fmt.Sprintf("/preview/%d/ws", demoID)
	return u.String(), nil
}

func encode(m Message) ([]byte, error) { return json.Marshal(m) }
