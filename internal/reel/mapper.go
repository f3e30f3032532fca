// Package reel maps between symbol row numbers and the pixel offsets that
// center them in the visible window. Positions are negative by convention:
// the strip scrolls upward, so stopping at a deeper symbol means a larger
// negative offset.
package reel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"quizslot/internal/rng"
)

var (
	// ErrRowNotFound marks a target row missing from the reel's symbol list.
	// A usable fallback position is still returned; callers log a warning and
	// keep the round playable instead of failing it.
	ErrRowNotFound = errors.New("target row not present in reel symbol list")

	// ErrEmptyReel marks an inverse lookup against an empty symbol list.
	ErrEmptyReel = errors.New("reel symbol list is empty")
)

// fallbackStops is how many of the leading stop positions the random
// fallback chooses among when the target row is missing.
const fallbackStops = 10

// Config holds the reel geometry and pacing.
type Config struct {
	SymbolHeight int           // pixels per symbol
	VisibleRows  int           // symbols visible at once; center row derives from this
	CycleSymbols int           // symbols in one rendered loop during spin
	SpinInterval time.Duration // frame pacing for the animation host
}

// DefaultConfig matches the reference reel geometry.
func DefaultConfig() Config {
	return Config{
		SymbolHeight: 120,
		VisibleRows:  3,
		CycleSymbols: 30,
		SpinInterval: 50 * time.Millisecond,
	}
}

// Mapper converts between rows and pixel offsets for one reel geometry.
// It is shared across all three reels; only the symbol list differs.
type Mapper struct {
	cfg Config
	src rng.Source
}

// NewMapper creates a mapper. Zero geometry fields fall back to defaults.
func NewMapper(cfg Config, src rng.Source) *Mapper {
	def := DefaultConfig()
	if cfg.SymbolHeight <= 0 {
		cfg.SymbolHeight = def.SymbolHeight
	}
	if cfg.VisibleRows <= 0 {
		cfg.VisibleRows = def.VisibleRows
	}
	if cfg.CycleSymbols <= 0 {
		cfg.CycleSymbols = def.CycleSymbols
	}
	if cfg.SpinInterval <= 0 {
		cfg.SpinInterval = def.SpinInterval
	}
	return &Mapper{cfg: cfg, src: src}
}

// centerOffset is how many rows sit above the center of the visible window.
func (m *Mapper) centerOffset() int {
	return m.cfg.VisibleRows / 2
}

// PositionForRow returns the pixel offset that centers the target row's
// symbol. When the row is absent from the list a random stop among the first
// fallbackStops positions is returned together with ErrRowNotFound; the
// position is still usable so a visually plausible stop beats blocking the
// round.
func (m *Mapper) PositionForRow(row int, list []int) (int, error) {
	idx := -1
	for i, r := range list {
		if r == row {
			idx = i
			break
		}
	}

	if idx < 0 {
		i, err := m.src.Intn(fallbackStops)
		if err != nil {
			return 0, fmt.Errorf("failed to draw fallback stop: %w", err)
		}
		return -i * m.cfg.SymbolHeight, ErrRowNotFound
	}

	n := len(list)
	top := ((idx-m.centerOffset())%n + n) % n
	return -top * m.cfg.SymbolHeight, nil
}

// RowForPosition returns the row number whose symbol is centered at the
// given pixel offset. Used after a physical stop to confirm what is actually
// displayed.
func (m *Mapper) RowForPosition(pos int, list []int) (int, error) {
	n := len(list)
	if n == 0 {
		return 0, ErrEmptyReel
	}

	abs := pos
	if abs < 0 {
		abs = -abs
	}
	top := int(math.Round(float64(abs) / float64(m.cfg.SymbolHeight)))
	idx := (top + m.centerOffset()) % n
	return list[idx], nil
}

// Snap rounds a position to the nearest whole-symbol stop. Animated
// approach can land a few pixels off; callers snap before the final inverse
// lookup.
func (m *Mapper) Snap(pos int) int {
	abs := pos
	if abs < 0 {
		abs = -abs
	}
	top := int(math.Round(float64(abs) / float64(m.cfg.SymbolHeight)))
	return -top * m.cfg.SymbolHeight
}

// Interval returns the spin frame pacing for the animation host.
func (m *Mapper) Interval() time.Duration {
	return m.cfg.SpinInterval
}

// CycleLength returns the pixel length of one full rendered loop, used for
// wraparound while spinning.
func (m *Mapper) CycleLength() int {
	return m.cfg.CycleSymbols * m.cfg.SymbolHeight
}

// Geometry is the layout and pacing contract handed to the animation host:
// everything a client needs to render stops and report pixel positions back.
type Geometry struct {
	SymbolHeight   int   `json:"symbol_height"`
	VisibleRows    int   `json:"visible_rows"`
	CycleLength    int   `json:"cycle_length"`
	SpinIntervalMS int64 `json:"spin_interval_ms"`
}

// Geometry returns the mapper's layout and pacing.
func (m *Mapper) Geometry() Geometry {
	return Geometry{
		SymbolHeight:   m.cfg.SymbolHeight,
		VisibleRows:    m.cfg.VisibleRows,
		CycleLength:    m.CycleLength(),
		SpinIntervalMS: m.cfg.SpinInterval.Milliseconds(),
	}
}
