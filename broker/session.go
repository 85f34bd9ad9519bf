package broker

import (
	"bufio"
	"fmt"
	"net"
	"time"

	log "github.com/funkygao/log4go"
	"github.com/funkygao/pubhub/proto"
)

type sessionState uint8

const (
	stateAccepted sessionState = iota
	stateAwaitingFormat
	stateActive
	stateClosed
)

var sessionStates = [...]string{
	stateAccepted:       "accepted",
	stateAwaitingFormat: "awaiting_format",
	stateActive:         "active",
	stateClosed:         "closed",
}

func (s sessionState) String() string {
	return sessionStates[s]
}

// inbound is what a reader hands to the server loop: one decoded frame or
// the error that ended the read side.
type inbound struct {
	s   *session
	m   proto.Message
	err error
}

// A session is the server side of one client conn.
//
// state and format belong to the server loop. The reader and writer
// goroutines only touch conn, jobs and closed.
type session struct {
	id     ConnId
	server *Server
	conn   net.Conn

	state  sessionState
	format proto.Serializer // valid once active

	jobs   chan []byte   // encoded outbound frames
	closed chan struct{} // closed by the loop when the session ends
}

func newSession(id ConnId, server *Server, conn net.Conn) *session {
	return &session{
		id:     id,
		server: server,
		conn:   conn,
		state:  stateAccepted,
		jobs:   make(chan []byte, server.cf.Broker.ClientOutboundQueueLen),
		closed: make(chan struct{}),
	}
}

func (this *session) String() string {
	return fmt.Sprintf("%d@%s", this.id, this.conn.RemoteAddr())
}

func (this *session) start() {
	this.state = stateAwaitingFormat
	go this.inboundLoop()
	go this.outboundLoop()
}

// Queue an encoded frame without blocking; false if the queue is full.
func (this *session) submit(frame []byte) bool {
	select {
	case this.jobs <- frame:
		return true
	default:
		return false
	}
}

// close ends the session. Frames already queued are still written, then the
// writer closes the conn which in turn stops the reader.
func (this *session) close() {
	if this.state == stateClosed {
		return
	}

	this.state = stateClosed
	close(this.closed)
	close(this.jobs)
}

// abort ends the session and releases the socket right away, queued frames
// are lost.
func (this *session) abort() {
	this.close()
	this.conn.Close()
}

// inboundLoop reads one frame at a time and waits for the loop to take it
// before reading the next. It exits after handing over a read error.
func (this *session) inboundLoop() {
	r := bufio.NewReader(this.conn)
	for {
		m, err := proto.DecodeOneMessage(r)

		select {
		case this.server.inbound <- inbound{s: this, m: m, err: err}:
		case <-this.closed:
			return
		case <-this.server.quit:
			return
		}

		if err != nil {
			return
		}
	}
}

func (this *session) outboundLoop() {
	defer func() {
		// Close connection on exit in order to cause inboundLoop to exit.
		this.conn.Close()
		log.Debug("%s conn closed", this)
	}()

	timeout := this.server.cf.Broker.IOTimeout
	for frame := range this.jobs {
		if timeout > 0 {
			this.conn.SetWriteDeadline(time.Now().Add(timeout))
		}

		if _, err := this.conn.Write(frame); err != nil {
			log.Error("%s: %v", this, err)
			return
		}

		this.server.stats.messageSend()
	}
}
