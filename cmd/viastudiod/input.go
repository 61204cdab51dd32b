package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvent parses one raw input_event record.
func decodeInputEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	if len(buf) < inputEventSize {
		return ev, fmt.Errorf("short input event: %d bytes", len(buf))
	}
	if err := binary.Read(bytes.NewReader(buf[:inputEventSize]), binary.LittleEndian, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// translateKey maps a teach-pendant key press to a studio event. Only key
// presses count; releases, auto-repeat and non-key events are ignored.
// The play key is ignored when no trajectory is configured.
func translateKey(ev inputEvent, keys InputKeysConfig, trajectory string) (Event, bool) {
	if ev.Type != EV_KEY || ev.Value != evValuePress {
		return nil, false
	}
	code := int(ev.Code)
	if code == 0 {
		return nil, false
	}

	switch code {
	case keys.Capture:
		return CaptureViaPoint{}, true
	case keys.Remove:
		return RemoveViaPoint{}, true
	case keys.Clear:
		return ClearViaPoints{}, true
	case keys.Cancel:
		return Cancel{}, true
	case keys.Play:
		if trajectory == "" {
			return nil, false
		}
		return Play{Name: trajectory}, true
	}
	return nil, false
}

// runInput reads the configured input devices and forwards mapped key
// presses to the daemon. It returns nil when ctx is canceled and an error if
// a device fails.
func runInput(ctx context.Context, cfg InputConfig, events chan<- Event, logger *slog.Logger) error {
	files := make([]*os.File, 0, len(cfg.Devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, dev := range cfg.Devices {
		f, err := os.Open(dev)
		if err != nil {
			return fmt.Errorf("open input device %s: %w", dev, err)
		}
		files = append(files, f)
		logger.Info("input device opened", "device", dev)
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEventsEpoll(ctx, files, raw, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("input: %w", err)

		case ev := <-raw:
			out, ok := translateKey(ev, cfg.Keys, cfg.Trajectory)
			if !ok {
				continue
			}
			logger.Debug("input key", "code", ev.Code, "event", fmt.Sprintf("%T", out))
			select {
			case events <- out:
			default:
				logger.Warn("event queue full, dropping key press", "code", ev.Code)
			}
		}
	}
}
