package utils

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// DeviceInfo is the coarse client description stored with session logs.
type DeviceInfo struct {
	Device  string
	Browser string
	OS      string
}

// ParseUserAgent classifies a User-Agent header.  Unknown parts are left as
// "Unknown" rather than empty so the dashboards have something to group by.
func ParseUserAgent(ua string) DeviceInfo {
	info := DeviceInfo{Device: "Unknown", Browser: "Unknown", OS: "Unknown"}
	if strings.TrimSpace(ua) == "" {
		return info
	}
	p := useragent.New(ua)
	switch {
	case p.Bot():
		info.Device = "Bot"
	case p.Mobile():
		info.Device = "Mobile"
	default:
		info.Device = "Desktop"
	}
	if name, version := p.Browser(); name != "" {
		info.Browser = strings.TrimSpace(name + " " + majorVersion(version))
	}
	if name := p.OSInfo().Name; name != "" {
		info.OS = name
	}
	return info
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i > 0 {
		return v[:i]
	}
	return v
}

// Location is the best-effort geolocation supplied by the edge proxy.
type Location struct {
	Country string
	City    string
}

// ClientLocation reads the geolocation headers set by common CDNs.  The
// service never calls an external geo-IP API.
func ClientLocation(h http.Header) Location {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(h.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return Location{
		Country: first("X-Vercel-IP-Country", "CF-IPCountry", "X-Country-Code"),
		City:    first("X-Vercel-IP-City", "CF-IPCity", "X-City"),
	}
}
