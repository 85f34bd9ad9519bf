package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/funkygao/golib/profiler"
	"github.com/funkygao/golib/server"
	"github.com/funkygao/golib/signal"
	log "github.com/funkygao/log4go"
	"github.com/funkygao/pubhub/broker"
	"github.com/funkygao/pubhub/config"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Println(err)
			debug.PrintStack()
		}
	}()

	parseFlags()

	if option.cpuProf || option.memProf || option.blockProf {
		cfg := &profiler.Config{
			Quiet:        true,
			ProfilePath:  "prof",
			CPUProfile:   option.cpuProf,
			MemProfile:   option.memProf,
			BlockProfile: option.blockProf,
		}

		defer profiler.Start(cfg).Stop()
	}

	server := server.NewServer("pubhubd")
	server.LoadConfig(option.configFile)
	server.Launch()

	broker := broker.NewServer(overrideConfig(config.LoadConfig(server.Conf)))
	signal.RegisterHandler(func(sig os.Signal) {
		log.Info("got signal %s, shutting down...", sig)
		broker.Stop()
	}, syscall.SIGINT, syscall.SIGTERM)

	broker.Start()
	<-broker.Done

	log.Close()
}
