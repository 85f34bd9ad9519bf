package broker

import (
	"bufio"
	"net"

	log "github.com/funkygao/log4go"
	"github.com/funkygao/pubhub/proto"
)

// A job is one encoded frame for the writer, r reports the write result.
type job struct {
	frame []byte
	r     chan error
}

// A ClientConn holds all the state associated with a connection to a
// pubhub broker. It should be allocated via Dial or NewClientConn.
//
// Sends are safe from any goroutine. Pull and ListTopics consume the
// inbound stream and are meant for one reader goroutine.
type ClientConn struct {
	Serializer proto.Serializer // frames after register are encoded with it
	Dump       bool             // When true, dump the messages in and out.

	conn     net.Conn
	incoming chan proto.Message
	pending  []proto.Message // publishes read by ListTopics, not pulled yet

	out      chan job
	gone     chan struct{} // inbound side ended
	doneChan chan struct{} // outbound side ended, conn closed
}

func Dial(addr string, s proto.Serializer) (*ClientConn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	return NewClientConn(conn, s)
}

// NewClientConn takes over conn and registers serializer s with the broker.
// The register frame itself is always json.
func NewClientConn(conn net.Conn, s proto.Serializer) (*ClientConn, error) {
	if !s.Valid() {
		conn.Close()
		return nil, proto.ErrUnknownSerializer
	}

	c := &ClientConn{
		Serializer: s,
		conn:       conn,
		incoming:   make(chan proto.Message, clientQueueLength),
		out:        make(chan job, clientQueueLength),
		gone:       make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
	go c.inboundLoop()
	go c.outboundLoop()

	if err := c.send(&proto.Register{Code: s}, proto.JSON); err != nil {
		c.conn.Close()
		return nil, err
	}

	return c, nil
}

func (c *ClientConn) inboundLoop() {
	defer func() {
		close(c.gone)

		// Cause any goroutines waiting on messages to arrive to exit.
		close(c.incoming)
	}()

	r := bufio.NewReader(c.conn)
	for {
		m, err := proto.DecodeOneMessage(r)
		if err != nil {
			if err != proto.ErrNoMessage {
				log.Debug("%s: %v", c.conn.RemoteAddr(), err)
			}
			return
		}

		if c.Dump {
			log.Debug("dump  in: %T %+v", m, m)
		}

		switch m.(type) {
		case *proto.Publish, *proto.List:
			c.incoming <- m

		default:
			// a broker never sends anything else
			log.Error("cli reader: got msg type %T", m)
			return
		}
	}
}

func (c *ClientConn) outboundLoop() {
	defer func() {
		c.conn.Close() // inboundLoop will get EOF
		close(c.doneChan)
	}()

	for {
		select {
		case job := <-c.out:
			_, err := c.conn.Write(job.frame)
			job.r <- err
			if err != nil || isEndOfStream(job.frame) {
				return
			}

		case <-c.gone:
			return
		}
	}
}

func isEndOfStream(frame []byte) bool {
	return len(frame) == proto.HeaderLen && frame[1] == 0 && frame[2] == 0
}

// send marshals m in the caller goroutine, so a message that misses a
// required field panics right there, then blocks until it is written.
func (c *ClientConn) send(m proto.Message, s proto.Serializer) error {
	frame, err := proto.Marshal(m, s)
	if err != nil {
		return err
	}

	if c.Dump {
		log.Debug("dump out: %T %+v", m, m)
	}

	return c.sync(frame)
}

func (c *ClientConn) sync(frame []byte) error {
	j := job{frame: frame, r: make(chan error, 1)}
	select {
	case c.out <- j:
	case <-c.doneChan:
		return ErrClientClosed
	}

	select {
	case err := <-j.r:
		return err
	case <-c.doneChan:
		return ErrClientClosed
	}
}

// Subscribe asks for the current value of topic and every later publish on
// topic or any topic under it.
func (c *ClientConn) Subscribe(topic string) error {
	return c.send(&proto.Subscribe{Topic: topic}, c.Serializer)
}

func (c *ClientConn) Publish(topic string, value interface{}) error {
	return c.send(&proto.Publish{Topic: topic, Value: value}, c.Serializer)
}

func (c *ClientConn) Cancel(topic string) error {
	return c.send(&proto.Cancel{Topic: topic}, c.Serializer)
}

// AskList requests the topic list, the reply arrives as a *proto.List.
func (c *ClientConn) AskList() error {
	return c.send(&proto.AskList{}, c.Serializer)
}

// Pull blocks until a *proto.Publish or *proto.List arrives.
func (c *ClientConn) Pull() (proto.Message, error) {
	if len(c.pending) > 0 {
		m := c.pending[0]
		c.pending = c.pending[1:]
		return m, nil
	}

	m, ok := <-c.incoming
	if !ok {
		return nil, ErrClientClosed
	}
	return m, nil
}

// ListTopics asks for the topics that have a value and waits for the reply.
// Publishes that arrive meanwhile are kept for Pull.
func (c *ClientConn) ListTopics() ([]string, error) {
	if err := c.AskList(); err != nil {
		return nil, err
	}

	for m := range c.incoming {
		if l, ok := m.(*proto.List); ok {
			return l.Topics, nil
		}

		c.pending = append(c.pending, m)
	}

	return nil, ErrClientClosed
}

// Close sends the end of stream frame and closes the conn. It blocks until
// the conn is closed.
func (c *ClientConn) Close() error {
	var eos [proto.HeaderLen]byte
	err := c.sync(eos[:])
	<-c.doneChan
	if err == ErrClientClosed {
		err = nil
	}
	return err
}
