package config

import (
	conf "github.com/funkygao/jsconf"
	log "github.com/funkygao/log4go"
)

type Config struct {
	Broker BrokerConfig
	Redis  RedisConfig
}

// LoadConfig reads the broker and redis sections of cf, applying defaults
// for anything missing. It panics on an invalid setting.
func LoadConfig(cf *conf.Conf) *Config {
	this := new(Config)

	// a missing broker section is fine, every key has a default
	section, err := cf.Section("broker")
	if err != nil {
		section = new(conf.Conf)
	}
	this.Broker.loadConfig(section)

	section, err = cf.Section("redis")
	if err != nil {
		section = new(conf.Conf)
	}
	this.Redis.loadConfig(section)

	log.Debug("config: %+v", *this)
	return this
}

// Default is the configuration of an empty config file.
func Default() *Config {
	this := new(Config)
	this.Broker.loadConfig(new(conf.Conf))
	this.Redis.loadConfig(new(conf.Conf))
	return this
}
