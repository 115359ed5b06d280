package http

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig decides which peers may report a client address through forwarding headers.
// A nil or empty IPConfig trusts nobody and always uses RemoteAddr.
type IPConfig struct {
	trusted []netip.Prefix
}

// NewIPConfig parses trusted proxy ranges. Entries may be CIDR ranges or bare addresses.
func NewIPConfig(trustedProxies []string) (*IPConfig, error) {
	cfg := &IPConfig{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy range %q: %w", entry, err)
			}
			cfg.trusted = append(cfg.trusted, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy address %q: %w", entry, err)
		}
		addr = addr.Unmap()
		cfg.trusted = append(cfg.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return cfg, nil
}

// MustIPConfig is NewIPConfig for fixed, known-good ranges
func MustIPConfig(trustedProxies ...string) *IPConfig {
	cfg, err := NewIPConfig(trustedProxies)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *IPConfig) isTrusted(addr netip.Addr) bool {
	if c == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the address of the caller.
//
// Forwarding headers are only consulted when the direct peer is a trusted proxy.
// X-Forwarded-For is walked from the right, skipping trusted hops, so entries a
// client prepends itself are never returned. X-Real-IP is the fallback when the
// chain yields nothing.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remote := remoteAddr(r)

	peer, err := netip.ParseAddr(remote)
	if err != nil || !config.isTrusted(peer) {
		return remote
	}

	if ip, ok := fromForwardedFor(r.Header.Values("X-Forwarded-For"), config); ok {
		return ip
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}

	return remote
}

func fromForwardedFor(values []string, config *IPConfig) (string, bool) {
	var hops []string
	for _, v := range values {
		hops = append(hops, strings.Split(v, ",")...)
	}

	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// a malformed hop ends the chain we can vouch for
			return "", false
		}
		if !config.isTrusted(addr) {
			return addr.Unmap().String(), true
		}
	}
	return "", false
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
