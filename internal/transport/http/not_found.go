package http

import "net/http"

// NotFoundHandler returns the JSON 404 used for unmatched routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found", nil)
	})
}
