/*
	privnet package guards the archiver against fetching resources from
	private network addresses. Archiving an untrusted page must not turn
	into a request against link-local metadata services or internal
	hosts, so hosts are resolved and checked against a configurable list
	of private CIDR blocks before any transport request is made.
*/

package privnet

import (
	"net"

	"github.com/mycok/uArchive/transport"
)

// Static and compile-time check to ensure Detector implements
// transport.PrivateNetworkDetector interface.
var _ transport.PrivateNetworkDetector = (*Detector)(nil)

// The RFC1918 private ranges plus loopback, link-local and other
// non-routable blocks, for both IPv4 and IPv6.
var defaultPrivateCIDRs = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"fe80::/10",
	"0.0.0.0/8",
	"255.255.255.255/32",
	"fc00::/7",
}

// Detector checks whether a host name resolves into a private network
// block.
type Detector struct {
	blocks []*net.IPNet
}

// NewDetector returns a detector configured with the default private
// network CIDR blocks.
func NewDetector() (*Detector, error) {
	return NewDetectorFromCIDRs(defaultPrivateCIDRs...)
}

// NewDetectorFromCIDRs returns a detector configured with a caller
// supplied list of CIDR blocks.
func NewDetectorFromCIDRs(cidrs ...string) (*Detector, error) {
	blocks := make([]*net.IPNet, len(cidrs))

	for i, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}

		blocks[i] = block
	}

	return &Detector{blocks: blocks}, nil
}

// IsNetworkPrivate resolves address and reports whether it belongs to
// any of the configured private network blocks.
func (d *Detector) IsNetworkPrivate(address string) (bool, error) {
	resolved, err := net.ResolveIPAddr("ip", address)
	if err != nil {
		return false, err
	}

	for _, block := range d.blocks {
		if block.Contains(resolved.IP) {
			return true, nil
		}
	}

	return false, nil
}
