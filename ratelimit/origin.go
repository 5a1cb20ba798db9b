package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP identifies the origin of r. The first X-Forwarded-For hop is only
// honoured when trustProxy is set; otherwise the connection address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
