package main

import (
	"flag"

	"github.com/funkygao/golib/server"
	"github.com/funkygao/pubhub/config"
)

var (
	option struct {
		configFile   string
		showVersion  bool
		crashLogFile string
		logFile      string
		logLevel     string
		cpuProf      bool
		memProf      bool
		blockProf    bool

		// broker overrides, zero keeps the config file value
		listenAddr string
		maxConns   int
		statsAddr  string
		echo       bool
	}
)

func init() {
	flag.StringVar(&option.configFile, "conf", "etc/pubhubd.cf", "config file")
	flag.BoolVar(&option.showVersion, "version", false, "show version and exit")
	flag.StringVar(&option.crashLogFile, "crashlog", "panic.dump", "crash log")
	flag.StringVar(&option.logFile, "log", "stdout", "log file")
	flag.StringVar(&option.logLevel, "level", "debug", "log level")
	flag.BoolVar(&option.cpuProf, "cpuprof", false, "enable cpu profiler")
	flag.BoolVar(&option.memProf, "memprof", false, "enable mem profiler")
	flag.BoolVar(&option.blockProf, "blockprof", false, "enable block profiler")
	flag.StringVar(&option.listenAddr, "listen", "", "broker listen addr, overrides broker.listen_addr")
	flag.IntVar(&option.maxConns, "maxconn", 0, "max client conns, overrides broker.max_connections")
	flag.StringVar(&option.statsAddr, "stats", "", "stats http addr, overrides broker.stats_http_listen_addr")
	flag.BoolVar(&option.echo, "echo", false, "log every message in and out")
}

func parseFlags() {
	flag.Parse()

	if option.showVersion {
		server.ShowVersionAndExit()
	}

	server.SetupLogging(option.logFile, option.logLevel, option.crashLogFile, "", "")
}

// overrideConfig puts the command line on top of the config file.
func overrideConfig(cf *config.Config) *config.Config {
	if option.listenAddr != "" {
		cf.Broker.ListenAddr = option.listenAddr
	}
	if option.maxConns > 0 {
		cf.Broker.MaxConnections = option.maxConns
	}
	if option.statsAddr != "" {
		cf.Broker.StatsHttpListenAddr = option.statsAddr
	}
	if option.echo {
		cf.Broker.Echo = true
	}
	return cf
}
