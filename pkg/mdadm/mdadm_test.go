package mdadm

import (
	"strings"
	"testing"
	"time"

	. "gopkg.in/check.v1"

	"github.com/raidforge/raidforge/pkg/raid"
	"github.com/raidforge/raidforge/pkg/types"
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct{}

var _ = Suite(&TestSuite{})

type fakeExecutor struct {
	binary string
	args   []string
}

func (f *fakeExecutor) Execute(envs []string, binary string, args []string, timeout time.Duration) (string, error) {
	f.binary = binary
	f.args = args
	return "", nil
}

func (s *TestSuite) TestCreateArgsRaid5(c *C) {
	cfg := raid.Config{
		Level:     types.Raid5,
		NumDisks:  4,
		ChunkSize: 64 * 1024,
		Layout:    types.LayoutLeftSymmetric,
		DiskSize:  1024 * 1024,
	}
	args := CreateArgs("/dev/md127", []string{"/dev/loop0", "/dev/loop1", "/dev/loop2", "/dev/loop3"},
		nil, cfg, "")
	joined := strings.Join(args, " ")

	c.Assert(strings.HasPrefix(joined, "--create /dev/md127"), Equals, true)
	c.Assert(strings.Contains(joined, "--level=5"), Equals, true)
	c.Assert(strings.Contains(joined, "--raid-devices=4"), Equals, true)
	c.Assert(strings.Contains(joined, "--chunk=64"), Equals, true)
	c.Assert(strings.Contains(joined, "--layout=left-symmetric"), Equals, true)
	c.Assert(strings.Contains(joined, "--spare-devices"), Equals, false)
	c.Assert(strings.HasSuffix(joined, "/dev/loop0 /dev/loop1 /dev/loop2 /dev/loop3"), Equals, true)
}

func (s *TestSuite) TestCreateArgsRaid1NoChunk(c *C) {
	cfg := raid.Config{
		Level:    types.Raid1,
		NumDisks: 2,
		DiskSize: 1024 * 1024,
	}
	args := CreateArgs("/dev/md0", []string{"/dev/loop0", "/dev/loop1"}, nil, cfg, "")
	joined := strings.Join(args, " ")

	c.Assert(strings.Contains(joined, "--level=1"), Equals, true)
	c.Assert(strings.Contains(joined, "--chunk"), Equals, false)
	c.Assert(strings.Contains(joined, "--layout"), Equals, false)
}

func (s *TestSuite) TestCreateArgsRaid10Layout(c *C) {
	cfg := raid.Config{
		Level:     types.Raid10,
		NumDisks:  4,
		ChunkSize: 64 * 1024,
		Layout:    types.LayoutNear,
		DiskSize:  1024 * 1024,
	}
	args := CreateArgs("/dev/md0", []string{"a", "b", "c", "d"}, nil, cfg, "")
	c.Assert(strings.Contains(strings.Join(args, " "), "--layout=n2"), Equals, true)

	cfg.Layout = types.LayoutOffset
	args = CreateArgs("/dev/md0", []string{"a", "b", "c", "d"}, nil, cfg, "")
	c.Assert(strings.Contains(strings.Join(args, " "), "--layout=o2"), Equals, true)
}

func (s *TestSuite) TestCreateArgsSparesAndUUID(c *C) {
	cfg := raid.Config{
		Level:     types.Raid6,
		NumDisks:  4,
		ChunkSize: 64 * 1024,
		Layout:    types.LayoutLeftSymmetric,
		DiskSize:  1024 * 1024,
	}
	args := CreateArgs("/dev/md0", []string{"a", "b", "c", "d"}, []string{"e"}, cfg,
		"f1f616fc-7438-4d6e-b495-0f0e6f06b0b1")
	joined := strings.Join(args, " ")

	c.Assert(strings.Contains(joined, "--spare-devices=1"), Equals, true)
	c.Assert(strings.Contains(joined, "--uuid=f1f616fc-7438-4d6e-b495-0f0e6f06b0b1"), Equals, true)
	c.Assert(strings.HasSuffix(joined, "d e"), Equals, true)
}

func (s *TestSuite) TestStopInvokesBinary(c *C) {
	executor := &fakeExecutor{}
	manager := New(executor)
	c.Assert(manager.Stop("/dev/md0"), IsNil)
	c.Assert(executor.binary, Equals, "mdadm")
	c.Assert(executor.args, DeepEquals, []string{"--stop", "/dev/md0"})
}

func (s *TestSuite) TestZeroSuperblock(c *C) {
	executor := &fakeExecutor{}
	manager := New(executor)
	c.Assert(manager.ZeroSuperblock("/dev/loop3"), IsNil)
	c.Assert(executor.args, DeepEquals, []string{"--zero-superblock", "/dev/loop3"})
}
