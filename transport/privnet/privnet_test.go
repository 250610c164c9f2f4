package privnet

import (
	"testing"

	check "gopkg.in/check.v1"
)

// Initialize and register a pointer instance of the detectorTestSuite to be
// executed by check testing package.
var _ = check.Suite(new(detectorTestSuite))

// Test registers the [check] library with the go testing library and enables
// the running of the test suite using the go testing library.
func Test(t *testing.T) {
	check.TestingT(t)
}

type detectorTestSuite struct{}

func (s *detectorTestSuite) TestLoopbackIsPrivate(c *check.C) {
	detector, err := NewDetector()
	c.Assert(err, check.IsNil)

	isPrivate, err := detector.IsNetworkPrivate("127.0.0.1")
	c.Assert(err, check.IsNil)
	c.Assert(isPrivate, check.Equals, true)
}

func (s *detectorTestSuite) TestLinkLocalIsPrivate(c *check.C) {
	detector, err := NewDetector()
	c.Assert(err, check.IsNil)

	isPrivate, err := detector.IsNetworkPrivate("169.254.169.254")
	c.Assert(err, check.IsNil)
	c.Assert(isPrivate, check.Equals, true)
}

func (s *detectorTestSuite) TestPublicAddressIsNotPrivate(c *check.C) {
	detector, err := NewDetector()
	c.Assert(err, check.IsNil)

	isPrivate, err := detector.IsNetworkPrivate("8.8.8.8")
	c.Assert(err, check.IsNil)
	c.Assert(isPrivate, check.Equals, false)
}

func (s *detectorTestSuite) TestInvalidCIDRIsRejected(c *check.C) {
	_, err := NewDetectorFromCIDRs("not-a-cidr")
	c.Assert(err, check.NotNil)
}
