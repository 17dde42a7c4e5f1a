package types

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	// MinChunkSize and MaxChunkSize bound the per-chunk stripe unit.
	// Chunk sizes must be a power-of-two number of KiB within this range.
	MinChunkSize = 4 * 1024
	MaxChunkSize = 1024 * 1024

	DefaultChunkSize = 64 * 1024

	ExecuteTimeout = 1 * time.Minute
)

var (
	ErrInvalidConfig = errors.New("invalid raid configuration")
	ErrNoChunks      = errors.New("no chunks for parity computation")
	ErrMissingTool   = errors.New("required external tool is not available")
)

// RaidLevel is the closed set of array levels the layout engine understands.
type RaidLevel int

const (
	Raid0  RaidLevel = 0
	Raid1  RaidLevel = 1
	Raid4  RaidLevel = 4
	Raid5  RaidLevel = 5
	Raid6  RaidLevel = 6
	Raid10 RaidLevel = 10
)

func ParseRaidLevel(level int) (RaidLevel, error) {
	switch RaidLevel(level) {
	case Raid0, Raid1, Raid4, Raid5, Raid6, Raid10:
		return RaidLevel(level), nil
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "unknown raid level %d", level)
}

func (l RaidLevel) String() string {
	return fmt.Sprintf("raid%d", int(l))
}

// MinDisks returns the smallest disk count that can carry the level.
func (l RaidLevel) MinDisks() int {
	switch l {
	case Raid0, Raid1:
		return 2
	case Raid4, Raid5:
		return 3
	case Raid6:
		return 4
	case Raid10:
		return 4
	}
	return 0
}

// Layout selects which disk holds parity for a given stripe set, or the
// replica arrangement for raid10 in external mode.
type Layout int

const (
	LayoutLeftSymmetric Layout = iota
	LayoutLeftAsymmetric
	LayoutRightSymmetric
	LayoutRightAsymmetric
	LayoutNear
	LayoutFar
	LayoutOffset
)

var layoutNames = map[Layout]string{
	LayoutLeftSymmetric:   "left-symmetric",
	LayoutLeftAsymmetric:  "left-asymmetric",
	LayoutRightSymmetric:  "right-symmetric",
	LayoutRightAsymmetric: "right-asymmetric",
	LayoutNear:            "near",
	LayoutFar:             "far",
	LayoutOffset:          "offset",
}

func ParseLayout(name string) (Layout, error) {
	for layout, layoutName := range layoutNames {
		if name == layoutName {
			return layout, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "unknown layout %q", name)
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// IsParityRotation reports whether the layout is one of the rotating-parity
// variants used by raid4/5/6 as opposed to the raid10 replica arrangements.
func (l Layout) IsParityRotation() bool {
	switch l {
	case LayoutLeftSymmetric, LayoutLeftAsymmetric, LayoutRightSymmetric, LayoutRightAsymmetric:
		return true
	}
	return false
}

// Direction is the stripe traversal order across disks. Only forward matches
// a real array; the others exist for layout practice.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
	DirectionInsideOut
	DirectionOutsideIn
)

var directionNames = map[Direction]string{
	DirectionForward:   "forward",
	DirectionBackward:  "backward",
	DirectionInsideOut: "inside-out",
	DirectionOutsideIn: "outside-in",
}

func ParseDirection(name string) (Direction, error) {
	for direction, directionName := range directionNames {
		if name == directionName {
			return direction, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "unknown direction %q", name)
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Algorithm perturbs the raw chunk index before placement. Deterministic for
// every variant, including random, so a rebuilt layout is always reproducible.
type Algorithm int

const (
	AlgorithmStandard Algorithm = iota
	AlgorithmDelayed
	AlgorithmInterleaved
	AlgorithmRandom
)

var algorithmNames = map[Algorithm]string{
	AlgorithmStandard:    "standard",
	AlgorithmDelayed:     "delayed",
	AlgorithmInterleaved: "interleaved",
	AlgorithmRandom:      "random",
}

func ParseAlgorithm(name string) (Algorithm, error) {
	for algorithm, algorithmName := range algorithmNames {
		if name == algorithmName {
			return algorithm, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "unknown algorithm %q", name)
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// SourceImage is the read-only input the layout engine distributes.
type SourceImage interface {
	ReadAt(buf []byte, offset int64) (int, error)
	Size() (int64, error)
	Close() error
	Name() string
}

// DiskFile is one output disk. Writes must never change the file length.
type DiskFile interface {
	ReadAt(buf []byte, offset int64) (int, error)
	WriteAt(buf []byte, offset int64) (int, error)
	Size() (int64, error)
	Sync() error
	Close() error
	Name() string
}

// Executor runs an external binary with a timeout. Satisfied by
// go-common-libs exec.NewExecutor().
type Executor interface {
	Execute(envs []string, binary string, args []string, timeout time.Duration) (string, error)
}
