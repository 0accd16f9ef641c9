package web

import "net/http"

// requestFields returns log attributes identifying who sent r. RemoteAddr has
// already been resolved by TrustedRealIP when the request came via a proxy.
func requestFields(r *http.Request) []any {
	return []any{
		"ip", clientIP(r),
		"user_agent", r.UserAgent(),
	}
}
