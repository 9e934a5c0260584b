package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"imovan/pkg/requestcontext"
)

// Device derives a human-readable device label from the User-Agent header
// ("Chrome on Linux") and records it, the raw header, and the client IP in
// the request context. The label ends up on session records and audit events.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if raw := r.Header.Get("User-Agent"); raw != "" {
			ctx = requestcontext.WithUserAgent(ctx, raw)
			ctx = requestcontext.WithDeviceLabel(ctx, DeviceLabel(raw))
		}
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceLabel condenses a User-Agent value into "Browser on OS".
func DeviceLabel(raw string) string {
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	os := ua.OSInfo().Name

	switch {
	case name != "" && os != "":
		return name + " on " + os
	case name != "":
		return name
	case os != "":
		return os
	default:
		return "unknown device"
	}
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For is set by the edge proxy; the first hop is the client.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
