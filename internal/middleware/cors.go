package middleware

import (
	"net/http"
	"strings"

	"github.com/zhouzirui/mood-fortune/backend/internal/handler/stillzone"
)

var allowedHeaders = strings.Join([]string{"Accept", "Content-Type", "X-Request-Id", stillzone.UserHeader}, ", ")

// CORS 允许浏览器前端跨域访问 API，预检请求直接返回 204。
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", allowedHeaders)
		h.Set("Access-Control-Expose-Headers", "X-Speech-Voice, X-Speech-Emotion")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
