package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRelay(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	r := mux.NewRouter()
	r.HandleFunc("/preview/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, mux.Vars(r)["id"])
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv.URL
}

func dial(t *testing.T, base string, id int64) *Conn {
	t.Helper()
	endpoint, err := Endpoint(base, id)
	require.NoError(t, err)
	c, err := Dial(context.Background(), endpoint, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func receive(t *testing.T, c *Conn) Message {
	t.Helper()
	select {
	case m, ok := <-c.Messages():
		require.True(t, ok, "connection closed")
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestDecodeRejectsUnknownMessages(t *testing.T) {
	_, err := Decode([]byte(`{"type":"RELOAD"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = Decode([]byte(`{"type":"CONTENT_UPDATED"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = Decode([]byte(`{"type":"CONTENT_UPDATED","page":0}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	m, err := Decode([]byte(`{"type":"SLIDE_CHANGED","slide":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, *m.Slide)
}

func TestEndpoint(t *testing.T) {
	got, err := Endpoint("http://localhost:8000", 7)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/preview/7/ws", got)

	got, err = Endpoint("https://example.com/api/", 3)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/api/preview/3/ws", got)

	_, err = Endpoint("ftp://x", 1)
	assert.Error(t, err)
}

func TestRelayBetweenPeersInSameRoom(t *testing.T) {
	hub, base := newRelay(t)
	editor := dial(t, base, 1)
	preview := dial(t, base, 1)
	other := dial(t, base, 2)

	require.Eventually(t, func() bool { return hub.Peers("1") == 2 && hub.Peers("2") == 1 },
		2*time.Second, 10*time.Millisecond)

	editor.Post(ContentUpdatedMessage(3))
	m := receive(t, preview)
	assert.Equal(t, ContentUpdated, m.Type)
	assert.Equal(t, 3, *m.Page)

	preview.Post(SlideChangedMessage(1))
	m = receive(t, editor)
	assert.Equal(t, SlideChanged, m.Type)
	assert.Equal(t, 1, *m.Slide)

	select {
	case m := <-other.Messages():
		t.Fatalf("message leaked across rooms: %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubDropsInvalidAndBroadcasts(t *testing.T) {
	hub, base := newRelay(t)
	listener := dial(t, base, 5)

	endpoint, err := Endpoint(base, 5)
	require.NoError(t, err)
	raw, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	require.NoError(t, err)
	defer raw.Close()

	require.Eventually(t, func() bool { return hub.Peers("5") == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, raw.WriteMessage(websocket.TextMessage, []byte(`{"type":"BOGUS"}`)))
	require.NoError(t, raw.WriteMessage(websocket.TextMessage, []byte(`{"type":"CONTENT_UPDATED","page":2}`)))

	m := receive(t, listener)
	assert.Equal(t, 2, *m.Page)

	hub.Broadcast("5", ContentUpdatedMessage(4))
	m = receive(t, listener)
	assert.Equal(t, 4, *m.Page)
}

func TestPostAfterCloseDoesNotBlock(t *testing.T) {
	_, base := newRelay(t)
	c := dial(t, base, 9)
	require.NoError(t, c.Close())
	for i := 0; i < 100; i++ {
		c.Post(ContentUpdatedMessage(1))
	}
	_, ok := <-c.Messages()
	assert.False(t, ok)
}

func TestDiscardAcceptsAnything(t *testing.T) {
	var p Poster = Discard{}
	p.Post(Message{Type: "whatever"})
}
