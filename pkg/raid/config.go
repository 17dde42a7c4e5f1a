package raid

import (
	"github.com/pkg/errors"

	"github.com/raidforge/raidforge/pkg/types"
)

// Config is the resolved, immutable description of one layout run. Build it
// once from validated input; no component mutates it afterwards.
type Config struct {
	Level      types.RaidLevel
	NumDisks   int
	SpareDisks int
	ChunkSize  int64
	Layout     types.Layout
	Direction  types.Direction
	Algorithm  types.Algorithm
	DiskSize   int64
}

func (c *Config) Validate() error {
	minDisks := c.Level.MinDisks()
	if minDisks == 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "unsupported raid level %d", int(c.Level))
	}
	if c.NumDisks < minDisks {
		return errors.Wrapf(types.ErrInvalidConfig, "%v requires at least %d disks, got %d",
			c.Level, minDisks, c.NumDisks)
	}
	if c.Level == types.Raid10 && c.NumDisks%2 != 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "raid10 requires an even disk count, got %d", c.NumDisks)
	}
	if c.SpareDisks < 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "negative spare disk count %d", c.SpareDisks)
	}
	if c.DiskSize <= 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "disk size must be positive, got %d", c.DiskSize)
	}

	// Chunk size is unused for plain mirroring.
	if c.Level != types.Raid1 {
		if err := validateChunkSize(c.ChunkSize); err != nil {
			return err
		}
	}

	switch c.Level {
	case types.Raid4, types.Raid5, types.Raid6:
		if !c.Layout.IsParityRotation() {
			return errors.Wrapf(types.ErrInvalidConfig, "layout %v is not valid for %v", c.Layout, c.Level)
		}
	case types.Raid10:
		switch c.Layout {
		case types.LayoutNear, types.LayoutFar, types.LayoutOffset:
		default:
			return errors.Wrapf(types.ErrInvalidConfig, "layout %v is not valid for raid10", c.Layout)
		}
	}

	return nil
}

// DataDisks returns how many disks of one stripe set carry data.
func (c *Config) DataDisks() int {
	switch c.Level {
	case types.Raid4, types.Raid5:
		return c.NumDisks - 1
	case types.Raid6:
		return c.NumDisks - 2
	}
	return c.NumDisks
}

// TotalDisks is the number of disk files to create, spares included.
func (c *Config) TotalDisks() int {
	return c.NumDisks + c.SpareDisks
}

func validateChunkSize(chunkSize int64) error {
	if chunkSize < types.MinChunkSize || chunkSize > types.MaxChunkSize {
		return errors.Wrapf(types.ErrInvalidConfig, "chunk size %d out of range [%d, %d]",
			chunkSize, types.MinChunkSize, types.MaxChunkSize)
	}
	if chunkSize%1024 != 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "chunk size %d is not a whole number of KiB", chunkSize)
	}
	chunkKB := chunkSize / 1024
	if chunkKB&(chunkKB-1) != 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "chunk size %d KiB is not a power of two", chunkKB)
	}
	return nil
}
