// Package urlutil guards outbound fetches against private and reserved
// network destinations.
package urlutil

import (
	"fmt"
	"net"
)

// privateRanges holds the private and reserved ranges an outbound fetch must
// never reach: loopback, RFC 1918, link-local (including the cloud metadata
// endpoint), CGNAT, multicast and their IPv6 counterparts.
var privateRanges []*net.IPNet

func init() {
	cidrs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"0.0.0.0/8",
		"224.0.0.0/4",

		"::1/128",
		"fe80::/10",
		"fc00::/7",
		"ff00::/8",
	}

	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in private ranges: %s", cidr))
		}
		privateRanges = append(privateRanges, ipNet)
	}
}

// IsPrivateIP reports whether ip belongs to a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateResolvedIP rejects resolved addresses in private or reserved
// ranges. Run it on every address DNS returned, before dialing, so a
// rebinding name cannot smuggle a request inside the network.
func ValidateResolvedIP(ip net.IP) error {
	if IsPrivateIP(ip) {
		return fmt.Errorf("resolved IP is in a private/reserved range: %s", ip.String())
	}
	return nil
}
