package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

// ws_listen connects to the viastudiod state WebSocket and prints every
// event. With -discover it finds the daemon over mDNS first.

const (
	serviceType   = "_viastudio._tcp"
	serviceDomain = "local."
)

type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type jointCommand struct {
	Session    string    `json:"session"`
	Segment    int       `json:"segment"`
	Positions  []float64 `json:"positions"`
	Velocities []float64 `json:"velocities"`
}

func main() {
	var (
		wsURL    = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "viastudiod state WebSocket URL")
		discover = flag.Bool("discover", false, "Find the daemon over mDNS instead of using -ws")
		timeout  = flag.Duration("discover-timeout", 3*time.Second, "mDNS browse timeout")
		quiet    = flag.Bool("quiet", false, "Do not print joint_command frames")
	)
	flag.Parse()

	target := *wsURL
	if *discover {
		found, err := discoverURL(*timeout)
		if err != nil {
			log.Fatalf("discovery failed: %v", err)
		}
		target = found
	}

	u, err := url.Parse(target)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The daemon pings every 20s. Each ping extends the read deadline.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			handleTextMessage(message, *quiet)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleTextMessage prints one state event.
func handleTextMessage(message []byte, quiet bool) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	ts := ""
	if env.Ts != nil {
		ts = env.Ts.Local().Format("15:04:05.000") + " "
	}

	if env.Type == "joint_command" {
		if quiet {
			return
		}
		var cmd jointCommand
		if err := json.Unmarshal(env.Data, &cmd); err == nil {
			fmt.Printf("%s[JOINTS] seg=%d deg=%s\n", ts, cmd.Segment, formatDegrees(cmd.Positions))
			return
		}
	}

	var data any
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	pretty, _ := json.MarshalIndent(data, "", "  ")
	fmt.Printf("%s[%s]\n%s\n\n", ts, strings.ToUpper(env.Type), string(pretty))
}

func formatDegrees(rad []float64) string {
	parts := make([]string, len(rad))
	for i, v := range rad {
		parts[i] = strconv.FormatFloat(v*180/math.Pi, 'f', 2, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// discoverURL browses for the first viastudiod instance and returns its state
// WebSocket URL.
func discoverURL(timeout time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("create resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, serviceType, serviceDomain, entries); err != nil {
		return "", fmt.Errorf("browse: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("no %s service found within %s", serviceType, timeout)
		case e, ok := <-entries:
			if !ok {
				return "", fmt.Errorf("no %s service found", serviceType)
			}
			if len(e.AddrIPv4) == 0 {
				continue
			}
			path := "/ws/state"
			for _, txt := range e.Text {
				if v, ok := strings.CutPrefix(txt, "ws_path="); ok && v != "" {
					path = v
				}
			}
			host := net.JoinHostPort(e.AddrIPv4[0].String(), strconv.Itoa(e.Port))
			log.Printf("found %s at %s", e.Instance, host)
			return "ws://" + host + path, nil
		}
	}
}
