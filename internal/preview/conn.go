package preview

import (
	"context"
	"net/http"
	"sync"
	"time"

	"central-illustration/internal/logger"

	"github.com/gorilla/websocket"
)

// Conn is one peer's connection to the relay. Post never blocks; messages
// that cannot be queued are dropped.
type Conn struct {
	ws  *websocket.Conn
	log *logger.Logger

	out  chan Message
	in   chan Message
	done chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func Dial(ctx context.Context, endpoint string, header http.Header, log *logger.Logger) (*Conn, error) {
	if log == nil {
		log = logger.Nop()
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		ws:   ws,
		log:  log.With("component", "preview-conn"),
		out:  make(chan Message, sendBuffer),
		in:   make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

func (c *Conn) Post(m Message) {
	if !m.Valid() {
		return
	}
	select {
	case <-c.done:
	case c.out <- m:
	default:
		c.log.Debug("preview send queue full, message dropped", "type", m.Type)
	}
}

// Messages delivers valid messages from other peers. It is closed when the
// connection ends.
func (c *Conn) Messages() <-chan Message { return c.in }

func (c *Conn) readLoop() {
	defer c.wg.Done()
	defer close(c.in)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := Decode(data)
		if err != nil {
			continue
		}
		select {
		case c.in <- msg:
		default:
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case m := <-c.out:
			data, err := encode(m)
			if err != nil {
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("preview write failed", "error", err)
			}
		}
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
		c.wg.Wait()
	})
	return err
}
