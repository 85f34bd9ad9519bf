package broker

import (
	"context"
	"errors"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	log "github.com/funkygao/log4go"
	"github.com/funkygao/pubhub/config"
	"github.com/funkygao/pubhub/proto"
)

// Server is the pubhub broker.
//
// One goroutine, the loop, owns the registry and every session. Readers and
// the acceptor hand it work through channels and writers drain per session
// queues, so the loop never blocks on a single peer.
type Server struct {
	cf *config.Config

	stats    *stats
	registry *Registry
	mirror   *valueMirror

	listener net.Listener
	sessions map[ConnId]*session
	nextId   ConnId

	accepts  chan net.Conn
	inbound  chan inbound
	quit     chan struct{}
	stopOnce sync.Once

	Done chan struct{}
}

func NewServer(cf *config.Config) (this *Server) {
	this = &Server{
		cf:       cf,
		stats:    newStats(cf.Broker.StatsInterval),
		registry: NewRegistry(),
		sessions: make(map[ConnId]*session, initSessionNum),
		accepts:  make(chan net.Conn),
		inbound:  make(chan inbound),
		quit:     make(chan struct{}),
		Done:     make(chan struct{}),
	}
	if cf.Redis.Enabled() {
		this.mirror = newValueMirror(cf.Redis)
	}

	return
}

// Start listens on the configured address and runs the loop in background.
// It panics if the address can't be listened on.
func (this *Server) Start() {
	listener, err := this.startListener()
	if err != nil {
		panic(err)
	}
	this.listener = listener

	if this.stats.interval > 0 {
		go this.stats.start(this.quit)
	}
	if addr := this.cf.Broker.StatsHttpListenAddr; addr != "" {
		if err = this.stats.serveHttp(addr, this.cf.Broker.ProfHttpListenAddr); err != nil {
			panic(err)
		}
	}
	if this.mirror != nil {
		this.mirror.start()
	}

	go this.acceptLoop()
	go this.loop()
}

// Run starts the server and blocks until ctx is done or Stop is called.
func (this *Server) Run(ctx context.Context) {
	this.Start()

	select {
	case <-ctx.Done():
		this.Stop()
	case <-this.Done:
	}

	<-this.Done
}

// Stop asks the loop to exit. Done is closed once every session is gone.
func (this *Server) Stop() {
	this.stopOnce.Do(func() {
		close(this.quit)
	})
}

// Addr is the address the broker listens on, nil before Start.
func (this *Server) Addr() net.Addr {
	if this.listener == nil {
		return nil
	}
	return this.listener.Addr()
}

func (this *Server) startListener() (listener net.Listener, err error) {
	listener, err = net.Listen("tcp", this.cf.Broker.ListenAddr)
	if err == nil {
		log.Info("Accepting client conn on %s", listener.Addr())
	}
	return
}

func (this *Server) acceptLoop() {
	for {
		conn, err := this.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			// e,g. too many open files
			log.Error(err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		select {
		case this.accepts <- conn:
		case <-this.quit:
			conn.Close()
			return
		}
	}
}

func (this *Server) loop() {
	defer this.shutdown()

	for {
		select {
		case <-this.quit:
			return

		case conn := <-this.accepts:
			this.accept(conn)

		case in := <-this.inbound:
			this.dispatch(in)
		}
	}
}

func (this *Server) shutdown() {
	this.listener.Close()

	for _, s := range this.sessions {
		this.drop(s, true)
	}

	if this.cf.Broker.StatsHttpListenAddr != "" {
		this.stats.stopHttp()
	}
	if this.mirror != nil {
		this.mirror.stop()
	}

	log.Info("broker stopped %s", this.stats)
	close(this.Done)
}

func (this *Server) accept(conn net.Conn) {
	if limit := this.cf.Broker.MaxConnections; limit > 0 && len(this.sessions) >= limit {
		log.Warn("client[%s] rejected: %v", conn.RemoteAddr(), ErrTooManyConnections)
		this.stats.connRejected()
		conn.Close()
		return
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(this.cf.Broker.TcpNoDelay)
		tcpConn.SetKeepAlive(this.cf.Broker.Keepalive)
	}

	// TODO: close sessions that never register within io_timeout
	this.nextId++
	s := newSession(this.nextId, this, conn)
	this.sessions[s.id] = s
	this.stats.clientConnect()
	log.Debug("client[%s] accepted", s)

	s.start()
}

// dispatch runs one inbound event of an open session to completion.
func (this *Server) dispatch(in inbound) {
	s := in.s
	if s.state == stateClosed {
		// the reader raced with close
		return
	}

	if in.err != nil {
		this.disconnected(s, in.err)
		return
	}

	this.stats.messageRecv()
	if this.cf.Broker.Echo {
		log.Debug("%s -> %T %+v", s, in.m, in.m)
	}

	if s.state == stateAwaitingFormat {
		r, ok := in.m.(*proto.Register)
		if !ok {
			this.violation(s, "%s before register", in.m.Command())
			return
		}

		s.format = r.Code
		s.state = stateActive
		log.Debug("%s registered %s", s, s.format)
		return
	}

	switch m := in.m.(type) {
	case *proto.Subscribe:
		if d := this.registry.Subscribe(m.Topic, s.id, s.format); d != nil {
			this.deliver(s, d.Msg, nil)
		}

	case *proto.Publish:
		this.publish(m)

	case *proto.AskList:
		reply, frame := this.listReply(s)
		this.deliver(s, reply, frame)

	case *proto.Cancel:
		this.registry.Unsubscribe(m.Topic, s.id)

	case *proto.Register:
		// registry entries carry the format, so it can't change
		this.violation(s, "register while %s", s.state)

	default:
		this.violation(s, "unexpected %s", m.Command())
	}
}

// listReply answers a list request. Past the frame limit the sorted topics
// are cut to the longest prefix that still fits.
func (this *Server) listReply(s *session) (*proto.List, []byte) {
	m := &proto.List{Topics: this.registry.ListTopics()}
	frame, err := proto.Marshal(m, s.format)
	if err != proto.ErrFrameTooLarge {
		return m, frame
	}

	all := m.Topics
	n := sort.Search(len(all), func(i int) bool {
		_, err := proto.Marshal(&proto.List{Topics: all[:i+1]}, s.format)
		return err == proto.ErrFrameTooLarge
	})
	log.Warn("%s: list of %d topics over %d bytes, truncated to %d",
		s, len(all), proto.MaxPayloadLen, n)

	m.Topics = all[:n]
	frame, _ = proto.Marshal(m, s.format)
	return m, frame
}

func (this *Server) publish(m *proto.Publish) {
	deliveries := this.registry.Publish(m.Topic, m.Value)
	this.stats.setTopics(this.registry.Topics())
	if this.mirror != nil {
		this.mirror.submit(m.Topic, m.Value)
	}

	// each serializer is marshalled at most once per publish
	var frames [proto.Binary + 1][]byte
	for _, d := range deliveries {
		s, present := this.sessions[d.Conn]
		if !present {
			continue
		}

		if frames[d.Format] == nil {
			frame, err := proto.Marshal(d.Msg, d.Format)
			if err != nil {
				log.Error("publish %s as %s: %v", d.Msg.Topic, d.Format, err)
				continue
			}
			frames[d.Format] = frame
		}

		this.deliver(s, d.Msg, frames[d.Format])
	}
}

// deliver queues m for s, marshalling it unless frame is given.
func (this *Server) deliver(s *session, m proto.Message, frame []byte) {
	if s.state == stateClosed {
		return
	}

	if frame == nil {
		var err error
		if frame, err = proto.Marshal(m, s.format); err != nil {
			log.Error("%s: %s: %v", s, m.Command(), err)
			return
		}
	}

	if this.cf.Broker.Echo {
		log.Debug("%s <- %T %+v", s, m, m)
	}

	if s.submit(frame) {
		return
	}

	this.stats.frameDropped()
	if this.cf.Broker.BuffOverflowStrategy == config.BufferOverflowKick {
		log.Warn("%s: outbound queue full, kicked out", s)
		this.drop(s, true)
		return
	}

	log.Error("%s: outbound queue full, %s dropped", s, m.Command())
}

func (this *Server) disconnected(s *session, err error) {
	var bad *proto.BadFormatError
	switch {
	case err == proto.ErrNoMessage, err == io.EOF:
		log.Debug("%s disconnected", s)

	case errors.As(err, &bad):
		this.stats.badFormat()
		log.Error("%s: %v", s, err)

	default:
		log.Warn("%s: %v", s, err)
	}

	this.drop(s, false)
}

func (this *Server) violation(s *session, format string, args ...interface{}) {
	this.stats.violation()
	log.Error("%s: %v: "+format, append([]interface{}{s, ErrProtocolViolation}, args...)...)
	this.drop(s, false)
}

// drop forgets s and ends it. With abort the socket is released at once,
// otherwise after the queued frames are written.
func (this *Server) drop(s *session, abort bool) {
	if s.state == stateClosed {
		return
	}

	this.registry.DropConnection(s.id)
	delete(this.sessions, s.id)
	this.stats.clientDisconnect()

	if abort {
		s.abort()
	} else {
		s.close()
	}
}
