package main

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the viastudiod daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. The file is the primary configuration surface; flags
// only override individual values.
type Config struct {
	// Physics scheduler
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Articulation description
	Robot RobotConfig `yaml:"robot"`

	// Actuation backend
	Actuator ActuatorConfig `yaml:"actuator"`

	// Trajectory storage
	Store StoreConfig `yaml:"store"`

	// Via-point capture
	Capture CaptureConfig `yaml:"capture"`

	// Teach pendant input devices
	Input InputConfig `yaml:"input"`

	// IPC configuration (used by viactl)
	IPC IPCConfig `yaml:"ipc"`

	// State WebSocket
	StateWS StateWSConfig `yaml:"state_ws"`

	// mDNS advertisement
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type SchedulerConfig struct {
	PhysicsHz int `yaml:"physics_hz"`

	// FixedStep feeds exactly 1/physics_hz to callbacks. When false the
	// measured wall-clock delta is used, clamped to two ticks.
	FixedStep bool `yaml:"fixed_step"`
}

type RobotConfig struct {
	JointNames []string `yaml:"joint_names"`
}

type ActuatorConfig struct {
	Backend string    `yaml:"backend"` // "sim" or "plc"
	Sim     SimConfig `yaml:"sim"`
	PLC     PLCConfig `yaml:"plc"`
}

type SimConfig struct {
	// SpringFrequency <= 0 makes joints snap to commands.
	SpringFrequency float64   `yaml:"spring_frequency"`
	SpringDamping   float64   `yaml:"spring_damping"`
	InitialDeg      []float64 `yaml:"initial_deg,omitempty"`
}

type PLCConfig struct {
	Host          string `yaml:"host"`
	Rack          int    `yaml:"rack"`
	Slot          int    `yaml:"slot"`
	TimeoutMS     int    `yaml:"timeout_ms"`
	StateDB       int    `yaml:"state_db"`
	StateOffset   int    `yaml:"state_offset"`
	CommandDB     int    `yaml:"command_db"`
	CommandOffset int    `yaml:"command_offset"`

	// Degrees selects degree units on the PLC side (radians otherwise).
	Degrees bool `yaml:"degrees"`
}

type StoreConfig struct {
	Backend string           `yaml:"backend"` // "file" or "redis"
	File    FileStoreConfig  `yaml:"file"`
	Redis   RedisStoreConfig `yaml:"redis"`
}

type FileStoreConfig struct {
	Dir      string `yaml:"dir"`
	FileName string `yaml:"file_name"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type CaptureConfig struct {
	DefaultDurationS float64 `yaml:"default_duration_s"`
}

type InputConfig struct {
	Enabled bool     `yaml:"enabled"`
	Devices []string `yaml:"devices,omitempty"`

	// Trajectory is the name played by the play key.
	Trajectory string          `yaml:"trajectory,omitempty"`
	Keys       InputKeysConfig `yaml:"keys"`
}

// InputKeysConfig maps evdev key codes to studio actions. Zero disables a key.
type InputKeysConfig struct {
	Capture int `yaml:"capture"`
	Remove  int `yaml:"remove"`
	Clear   int `yaml:"clear"`
	Play    int `yaml:"play"`
	Cancel  int `yaml:"cancel"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"` // defaults to "<hostname>-viastudio"
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Scheduler: SchedulerConfig{
			PhysicsHz: defaultPhysicsHz,
			FixedStep: true,
		},
		Robot: RobotConfig{
			JointNames: []string{"SY", "SP", "EB1", "EB2", "WP", "WR", "WY", "LF", "RF"},
		},
		Actuator: ActuatorConfig{
			Backend: actuatorBackendSim,
			Sim: SimConfig{
				SpringFrequency: defaultSpringFrequency,
				SpringDamping:   defaultSpringDamping,
			},
			PLC: PLCConfig{
				Rack:      0,
				Slot:      1,
				TimeoutMS: defaultPLCTimeoutMS,
				StateDB:   100,
				CommandDB: 101,
			},
		},
		Store: StoreConfig{
			Backend: storeBackendFile,
			File: FileStoreConfig{
				Dir:      "~/.local/share/viastudio/trajectory",
				FileName: defaultTrajectoryFile,
			},
			Redis: RedisStoreConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: defaultRedisPrefix,
			},
		},
		Capture: CaptureConfig{
			DefaultDurationS: defaultCaptureDurationS,
		},
		Input: InputConfig{
			Enabled: false,
			Devices: []string{"/dev/input/event6"},
			Keys: InputKeysConfig{
				Capture: KEY_ENTER,
				Remove:  KEY_BACKSPACE,
				Clear:   KEY_DELETE,
				Play:    KEY_PLAYPAUSE,
				Cancel:  KEY_STOPCD,
			},
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/viastudio.sock",
		},
		StateWS: StateWSConfig{
			Enabled: true,
			Listen:  ":3002",
			Path:    "/ws/state",
		},
		Discovery: DiscoveryConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) and only a single YAML
// document is allowed.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command-line overrides on top of a loaded config.
// Each override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	PhysicsHz *int
	FixedStep *bool

	ActuatorBackend *string
	PLCHost         *string

	StoreBackend *string
	StoreDir     *string
	RedisAddr    *string

	InputDevice *string

	IPCSocketPath *string
	StateWSListen *string
	Discovery     *bool

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a "zero value").
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.PhysicsHz != nil {
		cfg.Scheduler.PhysicsHz = *o.PhysicsHz
	}
	if o.FixedStep != nil {
		cfg.Scheduler.FixedStep = *o.FixedStep
	}

	if o.ActuatorBackend != nil {
		cfg.Actuator.Backend = *o.ActuatorBackend
	}
	if o.PLCHost != nil {
		cfg.Actuator.PLC.Host = *o.PLCHost
	}

	if o.StoreBackend != nil {
		cfg.Store.Backend = *o.StoreBackend
	}
	if o.StoreDir != nil {
		cfg.Store.File.Dir = *o.StoreDir
	}
	if o.RedisAddr != nil {
		cfg.Store.Redis.Addr = *o.RedisAddr
	}

	if o.InputDevice != nil {
		cfg.Input.Enabled = true
		cfg.Input.Devices = []string{*o.InputDevice}
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSListen != nil {
		cfg.StateWS.Listen = *o.StateWSListen
	}
	if o.Discovery != nil {
		cfg.Discovery.Enabled = *o.Discovery
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Scheduler
	if c.Scheduler.PhysicsHz <= 0 || c.Scheduler.PhysicsHz > maxPhysicsHz {
		return fmt.Errorf("scheduler.physics_hz must be between 1 and %d", maxPhysicsHz)
	}

	// Robot
	if len(c.Robot.JointNames) == 0 {
		return errors.New("robot.joint_names must not be empty")
	}
	seen := make(map[string]bool, len(c.Robot.JointNames))
	for i, name := range c.Robot.JointNames {
		if name == "" {
			return fmt.Errorf("robot.joint_names[%d] is empty", i)
		}
		if seen[name] {
			return fmt.Errorf("robot.joint_names[%d] %q is duplicated", i, name)
		}
		seen[name] = true
	}

	// Actuator
	switch c.Actuator.Backend {
	case actuatorBackendSim:
		if c.Actuator.Sim.SpringFrequency > 0 && c.Actuator.Sim.SpringDamping <= 0 {
			return errors.New("actuator.sim.spring_damping must be > 0 when spring_frequency is set")
		}
		if len(c.Actuator.Sim.InitialDeg) > len(c.Robot.JointNames) {
			return errors.New("actuator.sim.initial_deg has more entries than robot.joint_names")
		}
	case actuatorBackendPLC:
		p := c.Actuator.PLC
		if p.Host == "" {
			return errors.New("actuator.plc.host must not be empty")
		}
		if p.TimeoutMS <= 0 {
			return errors.New("actuator.plc.timeout_ms must be > 0")
		}
		if p.StateDB <= 0 || p.CommandDB <= 0 {
			return errors.New("actuator.plc.state_db and command_db must be > 0")
		}
		if p.StateOffset < 0 || p.CommandOffset < 0 {
			return errors.New("actuator.plc offsets must be >= 0")
		}
	default:
		return fmt.Errorf("actuator.backend must be %q or %q", actuatorBackendSim, actuatorBackendPLC)
	}

	// Store
	switch c.Store.Backend {
	case storeBackendFile:
		if c.Store.File.Dir == "" {
			return errors.New("store.file.dir must not be empty")
		}
		if c.Store.File.FileName == "" || filepath.Base(c.Store.File.FileName) != c.Store.File.FileName {
			return errors.New("store.file.file_name must be a plain file name")
		}
	case storeBackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr must not be empty")
		}
		if c.Store.Redis.Prefix == "" {
			return errors.New("store.redis.prefix must not be empty")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q", storeBackendFile, storeBackendRedis)
	}

	// Capture
	if c.Capture.DefaultDurationS <= 0 {
		return errors.New("capture.default_duration_s must be > 0")
	}

	// Input
	if c.Input.Enabled {
		if len(c.Input.Devices) == 0 {
			return errors.New("input.devices must not be empty when input is enabled")
		}
		for i, dev := range c.Input.Devices {
			if dev == "" {
				return fmt.Errorf("input.devices[%d] is empty", i)
			}
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// State WebSocket
	if c.StateWS.Enabled {
		if _, err := c.StateWSPort(); err != nil {
			return fmt.Errorf("state_ws.listen: %w", err)
		}
		if c.StateWS.Path == "" || c.StateWS.Path[0] != '/' {
			return errors.New("state_ws.path must start with /")
		}
	}
	if c.Discovery.Enabled && !c.StateWS.Enabled {
		return errors.New("discovery requires state_ws to be enabled")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// StateWSPort returns the TCP port of state_ws.listen.
func (c *Config) StateWSPort() (int, error) {
	_, portStr, err := net.SplitHostPort(c.StateWS.Listen)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", portStr)
	}
	return port, nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
