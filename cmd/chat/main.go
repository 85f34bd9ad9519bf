package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/funkygao/golib/color"
	"github.com/funkygao/pubhub/broker"
	"github.com/funkygao/pubhub/proto"
)

var (
	server string
	room   string
	user   string

	netRtt time.Duration

	onlineLock  sync.Mutex
	onlineUsers = make(map[string]bool)

	cc *broker.ClientConn
)

func init() {
	flag.StringVar(&user, "user", "", "chat username(required)")
	flag.StringVar(&server, "server", "localhost:5000", "broker server addr")
	flag.StringVar(&room, "room", "lobby", "chat room")
}

func main() {
	flag.Parse()
	if user == "" {
		fmt.Fprintf(os.Stderr, "Must specify chat username\n\n")
		flag.Usage()
		os.Exit(0)
	}

	setupChat()
	cliLoop()
}

// Every user publishes under /chat/<room>/<user>.
func roomPrefix(r string) string {
	return "/chat/" + r + "/"
}

func topicOf(u string) string {
	return roomPrefix(room) + u
}

// joinRoom subscribes to the room for live lines. Replay is per exact topic,
// so each user topic already in the room is subscribed on its own to get
// that user's last line.
func joinRoom(cc *broker.ClientConn, r string) error {
	if err := cc.Subscribe("/chat/" + r); err != nil {
		return err
	}

	topics, err := cc.ListTopics()
	if err != nil {
		return err
	}

	prefix := roomPrefix(r)
	for _, t := range topics {
		if strings.HasPrefix(t, prefix) && !strings.Contains(t[len(prefix):], "/") {
			if err = cc.Subscribe(t); err != nil {
				return err
			}
		}
	}

	return nil
}

func setupChat() {
	fmt.Printf("Connecting to broker %s...\n", server)
	t1 := time.Now()
	var err error
	cc, err = broker.Dial(server, proto.JSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	netRtt = time.Since(t1)

	if err = joinRoom(cc, room); err != nil {
		fmt.Fprintf(os.Stderr, "join: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Broker connected, joined room: %s\n", room)
	fmt.Printf("Network latency: %s\n", netRtt)

	go subLoop()
}

func subLoop() {
	prefix := topicOf("")
	for {
		m, err := cc.Pull()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		pub, ok := m.(*proto.Publish)
		if !ok {
			continue
		}

		from := strings.TrimPrefix(pub.Topic, prefix)
		onlineLock.Lock()
		onlineUsers[from] = true
		onlineLock.Unlock()
		fmt.Printf("\n[%s] [%s] -> %s\n", color.Yellow("%s", from),
			color.Yellow(time.Now().Format("01-02 15:04:05")),
			color.Green("%v", pub.Value))
	}
}

func cliLoop() {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("[%s] Enter text: ", room)
		text, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println(err)
			cc.Close()
			return
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if handleCliCmd(text) {
			// its internal command
			continue
		}

		if err = cc.Publish(topicOf(user), text); err != nil {
			fmt.Println(color.Red("%v", err))
		}
	}
}

func handleCliCmd(txt string) bool {
	switch txt {
	case "help":
		fmt.Println("help w who whoami rtt rooms")
		return true

	case "w", "who":
		onlineLock.Lock()
		for u := range onlineUsers {
			fmt.Printf("%s ", u)
		}
		onlineLock.Unlock()
		fmt.Println()
		return true

	case "whoami":
		fmt.Println(user)
		return true

	case "rtt":
		fmt.Println(netRtt)
		return true

	case "rooms":
		// the list reply is consumed by subLoop's Pull, so ask on a fresh conn
		lc, err := broker.Dial(server, proto.JSON)
		if err != nil {
			fmt.Println(color.Red("%v", err))
			return true
		}
		defer lc.Close()

		topics, err := lc.ListTopics()
		if err != nil {
			fmt.Println(color.Red("%v", err))
			return true
		}
		rooms := make(map[string]bool)
		for _, t := range topics {
			if parts := strings.SplitN(strings.TrimPrefix(t, "/chat/"), "/", 2); len(parts) == 2 && strings.HasPrefix(t, "/chat/") {
				rooms[parts[0]] = true
			}
		}
		for r := range rooms {
			fmt.Printf("%s ", r)
		}
		fmt.Println()
		return true
	}

	return false
}
