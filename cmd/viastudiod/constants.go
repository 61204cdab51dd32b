package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	KEY_BACKSPACE = 14
	KEY_ENTER     = 28
	KEY_DELETE    = 111
	KEY_PLAYPAUSE = 164
	KEY_STOPCD    = 166
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Backend identifiers used in the config file.
const (
	actuatorBackendSim = "sim"
	actuatorBackendPLC = "plc"

	storeBackendFile  = "file"
	storeBackendRedis = "redis"
)

// playbackCallbackName is the scheduler slot used by trajectory playback.
const playbackCallbackName = "p2p_playback"

const (
	defaultPhysicsHz        = 100 // Physics/scheduler rate (Hz); step = 0.01 s
	maxPhysicsHz            = 1000
	defaultCaptureDurationS = 3.0 // Arrival duration written for exported via-points (s)
	defaultPLCTimeoutMS     = 500

	defaultSpringFrequency = 12.0 // Sim spring angular frequency
	defaultSpringDamping   = 1.0  // Critically damped

	defaultTrajectoryFile = "viapoints.csv"
	defaultRedisPrefix    = "viastudio"

	discoveryServiceType   = "_viastudio._tcp"
	discoveryServiceDomain = "local."
)
