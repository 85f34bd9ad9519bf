package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/funkygao/pubhub/broker"
	"github.com/funkygao/pubhub/proto"
)

var host = flag.String("host", "localhost:5000", "hostname of broker")
var format = flag.String("format", "json", "serializer: json|xml|binary")
var raw = flag.Bool("raw", false, "publish the value as a string even if it is valid json")
var dump = flag.Bool("dump", false, "dump messages?")

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: pub topic value")
		return
	}

	s, err := proto.ParseSerializer(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cc, err := broker.Dial(*host, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	cc.Dump = *dump
	defer cc.Close()

	if err = cc.Publish(flag.Arg(0), parseValue(flag.Arg(1))); err != nil {
		log.Fatal(err)
	}
}

// 21.5 is published as a number, sunny as a string.
func parseValue(s string) interface{} {
	if *raw {
		return s
	}

	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
