package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"xs2acms/pkg/requestcontext"
)

// HeaderPsuUserAgent is the Berlin Group header carrying the PSU's browser User-Agent.
const HeaderPsuUserAgent = "PSU-User-Agent"

// Device summarises the PSU-User-Agent header (falling back to User-Agent)
// into a short display name and stores it in the request context, where the
// lifecycle services pick it up for audit events.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderPsuUserAgent)
		if raw == "" {
			raw = r.Header.Get("User-Agent")
		}
		ctx := r.Context()
		if raw != "" {
			ctx = requestcontext.WithPsuDevice(ctx, Describe(raw))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Describe returns "Browser on OS" (e.g. "Chrome on macOS", "Safari on iPhone").
func Describe(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
