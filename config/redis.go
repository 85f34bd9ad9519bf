package config

import (
	"time"

	conf "github.com/funkygao/jsconf"
)

// RedisConfig drives the topic value mirror. An empty Server disables it.
type RedisConfig struct {
	Server      string
	MaxIdle     int
	IdleTimeout time.Duration
	IOTimeout   time.Duration
	KeyPrefix   string
	QueueLen    int
}

func (this *RedisConfig) Enabled() bool {
	return this.Server != ""
}

func (this *RedisConfig) loadConfig(cf *conf.Conf) {
	this.Server = cf.String("server", "")
	this.MaxIdle = cf.Int("max_idle", 5)
	this.IdleTimeout = cf.Duration("idle_timeout", time.Second*360)
	this.IOTimeout = cf.Duration("io_timeout", time.Second*2)
	this.KeyPrefix = cf.String("key_prefix", "pubhub.topic.")
	this.QueueLen = cf.Int("queue_len", 1000)

	if this.IOTimeout <= 0 {
		this.IOTimeout = time.Second * 2
	}
	if this.QueueLen < 1 {
		this.QueueLen = 1
	}
}
