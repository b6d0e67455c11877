package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig lists the CIDR ranges of reverse proxies whose forwarding
// headers are believed. Invalid entries are ignored.
type IPConfig struct {
	TrustedProxies []string
}

func (c *IPConfig) prefixes() []netip.Prefix {
	if c == nil {
		return nil
	}
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		if p, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
			out = append(out, p.Masked())
		}
	}
	return out
}

// ExtractClientIP returns the address of the client that sent r, used for
// audit events and rate limiting.
//
// Forwarding headers are only read when the direct peer is a trusted proxy.
// X-Forwarded-For is walked from the right and the first hop that is not a
// trusted proxy wins, so a client cannot choose its own address by
// prepending entries.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remote := remoteAddr(r)
	trusted := config.prefixes()

	peer, err := netip.ParseAddr(remote)
	if err != nil || !contains(trusted, peer) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !contains(trusted, hop) {
				return hop.String()
			}
		}
	}

	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.String()
	}

	return remote
}

// remoteAddr strips the port from RemoteAddr
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func contains(prefixes []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
