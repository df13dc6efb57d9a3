package middleware

import (
	"log/slog"
	"net"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
)

// IPExtractor decides how c.RealIP() resolves the client address.  With no
// trusted proxies the socket peer is used and X-Forwarded-For is ignored, so
// a client cannot pick its own rate-limit bucket.  Otherwise the header is
// honoured only for hops inside the listed ranges (CIDRs or bare IPs).
func IPExtractor(trusted []string) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, s := range trusted {
		if n := parseRange(s); n != nil {
			opts = append(opts, echo.TrustIPRange(n))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy", "value", s)
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func parseRange(s string) *net.IPNet {
	s = strings.TrimSpace(s)
	if _, n, err := net.ParseCIDR(s); err == nil {
		return n
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
}

// identity returns a stable key for the caller: the principal kind and id
// when authenticated, otherwise "ip:<client ip>".
func identity(c echo.Context) string {
	if p, ok := auth.FromContext(c); ok {
		return string(p.Kind) + ":" + p.ID
	}
	return "ip:" + ByIP(c)
}

// ByIP keys a limiter by client IP only.
func ByIP(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return ip
}

// ByIdentity keys a limiter by principal when present, else by IP.
func ByIdentity(c echo.Context) string { return identity(c) }
