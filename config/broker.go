package config

import (
	"fmt"
	"time"

	conf "github.com/funkygao/jsconf"
)

const (
	BufferOverflowDrop = "drop"
	BufferOverflowKick = "kick"
)

type BrokerConfig struct {
	ListenAddr string

	StatsInterval          time.Duration
	StatsHttpListenAddr    string
	ProfHttpListenAddr     string
	Echo                   bool
	MaxConnections         int // max concurrent client conns, 0 for unlimited
	IOTimeout              time.Duration
	ClientOutboundQueueLen int
	BuffOverflowStrategy   string
	TcpNoDelay             bool
	Keepalive              bool
}

func (this *BrokerConfig) loadConfig(cf *conf.Conf) {
	this.ListenAddr = cf.String("listen_addr", ":5000")
	this.StatsInterval = cf.Duration("stats_interval", 10*time.Minute)
	this.StatsHttpListenAddr = cf.String("stats_http_listen_addr", "")
	this.ProfHttpListenAddr = cf.String("prof_http_listen_addr", "")
	this.Echo = cf.Bool("echo", false)
	this.MaxConnections = cf.Int("max_connections", 50000)
	this.IOTimeout = cf.Duration("io_timeout", time.Second*5)
	this.ClientOutboundQueueLen = cf.Int("client_outbound_queue_len", 100)
	this.BuffOverflowStrategy = cf.String("buffer_overflow_strategy", BufferOverflowDrop)
	this.TcpNoDelay = cf.Bool("tcp_nodelay", true)
	this.Keepalive = cf.Bool("keepalive", true)

	// validation
	if this.ListenAddr == "" {
		panic("Empty listen address")
	}
	switch this.BuffOverflowStrategy {
	case BufferOverflowDrop, BufferOverflowKick:
	default:
		panic(fmt.Sprintf("Unknown buffer overflow strategy: %s", this.BuffOverflowStrategy))
	}
	if this.ClientOutboundQueueLen < 1 {
		this.ClientOutboundQueueLen = 1
	}
}
