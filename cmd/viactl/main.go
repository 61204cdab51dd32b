package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// viactl - Command-line IPC Client
// ============================================================================
// Sends commands to the viastudiod daemon over its Unix socket.
//
// Usage:
//   viactl play demo
//   viactl capture
//   viactl save taught -duration 2.5
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/viastudio.sock)
// ============================================================================

const defaultSocketPath = "/tmp/viastudio.sock"

// envelope is the daemon's IPC wire format.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type namedPayload struct {
	Name      string  `json:"name"`
	DurationS float64 `json:"duration_s,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var errUsage = errors.New("usage")

func main() {
	socketPath := defaultSocketPath

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return
	}

	env, err := buildCommand(args)
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		printUsage()
		os.Exit(1)
	}

	if err := send(socketPath, env); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// buildCommand turns command-line arguments into an IPC envelope.
func buildCommand(args []string) (envelope, error) {
	if len(args) == 0 {
		return envelope{}, errUsage
	}

	switch args[0] {
	case "play":
		if len(args) != 2 {
			return envelope{}, fmt.Errorf("play requires a trajectory name")
		}
		return withPayload("play", namedPayload{Name: args[1]})

	case "cancel", "stop":
		return envelope{Type: "cancel"}, nil

	case "capture":
		return envelope{Type: "capture_via_point"}, nil

	case "remove", "undo":
		return envelope{Type: "remove_via_point"}, nil

	case "clear":
		return envelope{Type: "clear_via_points"}, nil

	case "save":
		if len(args) < 2 {
			return envelope{}, fmt.Errorf("save requires a trajectory name")
		}
		p := namedPayload{Name: args[1]}
		rest := args[2:]
		if len(rest) > 0 {
			if len(rest) != 2 || (rest[0] != "-duration" && rest[0] != "--duration") {
				return envelope{}, fmt.Errorf("save: unexpected arguments %v", rest)
			}
			d, err := strconv.ParseFloat(rest[1], 64)
			if err != nil || d <= 0 {
				return envelope{}, fmt.Errorf("save: invalid duration %q", rest[1])
			}
			p.DurationS = d
		}
		return withPayload("save_via_points", p)

	default:
		return envelope{}, fmt.Errorf("unknown command: %s", args[0])
	}
}

func withPayload(typ string, v any) (envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return envelope{Type: typ, Data: data}, nil
}

func send(socketPath string, env envelope) error {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `viactl - Control the viastudiod daemon via IPC

Usage:
  viactl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Commands:
  play <name>                      Play a stored trajectory
  cancel, stop                     Stop the running playback
  capture                          Capture the current joint positions
  remove, undo                     Drop the last captured via-point
  clear                            Drop all captured via-points
  save <name> [-duration SECONDS]  Store captured via-points as a trajectory
  help, -h, --help                 Show this help message

Examples:
  viactl play pick_place
  viactl save taught -duration 2.5
  viactl -socket /run/viastudio.sock cancel
`, defaultSocketPath)
}
