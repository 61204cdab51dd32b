package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/robinson/gos7"
)

// realSize is the width of an S7 REAL (IEEE 754 single precision).
const realSize = 4

// s7DataBlocks is the subset of gos7.Client used by plcActuator.
type s7DataBlocks interface {
	AGReadDB(dbNumber int, start int, size int, buffer []byte) error
	AGWriteDB(dbNumber int, start int, size int, buffer []byte) error
}

// plcActuator drives an articulation through a Siemens S7 PLC.
//
// Layout (all values big-endian REAL):
//
//	state_db   @ state_offset:   actual position per joint
//	command_db @ command_offset: commanded position per joint, then commanded velocity per joint
type plcActuator struct {
	logger  *slog.Logger
	cfg     PLCConfig
	dim     int
	handler *gos7.TCPClientHandler
	db      s7DataBlocks

	// Preallocated transfer buffers.
	stateBuf []byte
	cmdBuf   []byte
}

func newPLCActuator(dim int, cfg PLCConfig, logger *slog.Logger) (*plcActuator, error) {
	handler := gos7.NewTCPClientHandler(cfg.Host, cfg.Rack, cfg.Slot)
	handler.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	handler.IdleTimeout = 70 * time.Second

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("connect to PLC %s (rack %d, slot %d): %w", cfg.Host, cfg.Rack, cfg.Slot, err)
	}
	logger.Info("connected to PLC", "host", cfg.Host, "rack", cfg.Rack, "slot", cfg.Slot)

	a := newPLCActuatorWithClient(dim, cfg, gos7.NewClient(handler), logger)
	a.handler = handler
	return a, nil
}

func newPLCActuatorWithClient(dim int, cfg PLCConfig, db s7DataBlocks, logger *slog.Logger) *plcActuator {
	return &plcActuator{
		logger:   logger,
		cfg:      cfg,
		dim:      dim,
		db:       db,
		stateBuf: make([]byte, dim*realSize),
		cmdBuf:   make([]byte, 2*dim*realSize),
	}
}

func (a *plcActuator) CurrentPositions() ([]float64, error) {
	if err := a.db.AGReadDB(a.cfg.StateDB, a.cfg.StateOffset, len(a.stateBuf), a.stateBuf); err != nil {
		return nil, fmt.Errorf("read DB%d: %w", a.cfg.StateDB, err)
	}
	out := make([]float64, a.dim)
	decodeReals(a.stateBuf, out)
	if a.cfg.Degrees {
		for i := range out {
			out[i] *= math.Pi / 180.0
		}
	}
	return out, nil
}

func (a *plcActuator) Apply(positions, velocities []float64) error {
	if len(positions) != a.dim || len(velocities) != a.dim {
		return fmt.Errorf("plc apply: got %d positions and %d velocities, want %d", len(positions), len(velocities), a.dim)
	}

	scale := 1.0
	if a.cfg.Degrees {
		scale = 180.0 / math.Pi
	}
	for i := 0; i < a.dim; i++ {
		putReal(a.cmdBuf[i*realSize:], positions[i]*scale)
		putReal(a.cmdBuf[(a.dim+i)*realSize:], velocities[i]*scale)
	}

	if err := a.db.AGWriteDB(a.cfg.CommandDB, a.cfg.CommandOffset, len(a.cmdBuf), a.cmdBuf); err != nil {
		return fmt.Errorf("write DB%d: %w", a.cfg.CommandDB, err)
	}
	return nil
}

func (a *plcActuator) Close() error {
	if a.handler == nil {
		return nil
	}
	err := a.handler.Close()
	a.handler = nil
	a.logger.Info("disconnected from PLC", "host", a.cfg.Host)
	return err
}

func putReal(b []byte, v float64) {
	binary.BigEndian.PutUint32(b, math.Float32bits(float32(v)))
}

func decodeReals(b []byte, out []float64) {
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b[i*realSize:])))
	}
}
