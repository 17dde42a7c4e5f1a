package util

import (
	"os"
	"testing"

	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct{}

var _ = Suite(&TestSuite{})

func (s *TestSuite) TestUUID(c *C) {
	first := UUID()
	second := UUID()
	c.Assert(first, HasLen, 36)
	c.Assert(first == second, Equals, false)
	c.Assert(RandomID(), HasLen, 8)
}

func (s *TestSuite) TestDiskFileName(c *C) {
	c.Assert(DiskFileName("/tmp/out", "disk_", 0), Equals, "/tmp/out/disk_0")
	c.Assert(DiskFileName("/tmp/out", "sdb", 11), Equals, "/tmp/out/sdb11")
}

func (s *TestSuite) TestLockOutputDir(c *C) {
	dir, err := os.MkdirTemp("", "lock")
	c.Assert(err, IsNil)
	defer os.RemoveAll(dir)

	fileLock, err := LockOutputDir(dir)
	c.Assert(err, IsNil)

	// A second build on the same directory must be refused.
	_, err = LockOutputDir(dir)
	c.Assert(err, NotNil)

	UnlockOutputDir(fileLock)
	fileLock, err = LockOutputDir(dir)
	c.Assert(err, IsNil)
	UnlockOutputDir(fileLock)
}
