// network/connection.go
package network

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	headerSize = 4
	writeWait  = 10 * time.Second
)

var (
	ErrPacketTooLarge   = errors.New("packet payload exceeds 65535 bytes")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
)

type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	ReadPacket() (*Packet, error)
}

// Encode 封包: 2字节消息ID + 2字节数据长度 + 数据
func Encode(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > math.MaxUint16 {
		return nil, ErrPacketTooLarge
	}
	packet := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[headerSize:], data)
	return packet, nil
}

// Decode parses one framed packet. Bytes after the declared length are ignored.
func Decode(data []byte) (*Packet, error) {
	if len(data) < headerSize {
		return nil, io.ErrShortBuffer
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if len(data) < headerSize+int(length) {
		return nil, io.ErrShortBuffer
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   data[headerSize : headerSize+int(length)],
	}, nil
}

type Options struct {
	// SendBuffer is the number of packets queued per connection.
	SendBuffer int
	// ReadLimit caps one inbound websocket message in bytes.
	ReadLimit int64
	// Heartbeat is the ping interval; a peer silent for two intervals is dropped.
	Heartbeat time.Duration
}

// WSConnection frames packets over a websocket. Writes go through a buffered
// queue drained by one goroutine, so a slow peer never blocks the sender. A
// peer that lets the queue fill up is disconnected.
type WSConnection struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	pumpDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
	overflow  sync.Once
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn, opts Options) *WSConnection {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	c := &WSConnection{
		conn:      conn,
		send:      make(chan []byte, opts.SendBuffer),
		done:      make(chan struct{}),
		pumpDone:  make(chan struct{}),
		heartbeat: opts.Heartbeat,
	}

	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	if c.heartbeat > 0 {
		conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
		})
	}

	go c.writePump()
	return c
}

func (c *WSConnection) Send(msgID uint16, data []byte) error {
	packet, err := Encode(msgID, data)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- packet:
		return nil
	default:
		// 对端跟不上, 断开后客户端重连会重新同步
		c.overflow.Do(func() {
			c.conn.Close()
			go c.Close()
		})
		return ErrSendBufferFull
	}
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return Decode(data)
}

// writePump is the only writer on the socket.
func (c *WSConnection) writePump() {
	defer close(c.pumpDone)

	var ping <-chan time.Time
	if c.heartbeat > 0 {
		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case packet := <-c.send:
			if err := c.write(packet); err != nil {
				c.conn.Close()
				return
			}
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *WSConnection) write(packet []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

// flush writes whatever is still queued, best effort.
func (c *WSConnection) flush() {
	for {
		select {
		case packet := <-c.send:
			if c.write(packet) != nil {
				return
			}
		default:
			return
		}
	}
}

// Close stops the writer, after it flushes queued packets, and closes the socket.
func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.pumpDone
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
