package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newSessionTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})
	return r
}

func TestSessionMiddleware_AssignsDistinctIDs(t *testing.T) {
	r := newSessionTestEngine()

	fetch := func() (string, []*http.Cookie) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		return w.Body.String(), w.Result().Cookies()
	}

	id1, cookies1 := fetch()
	id2, _ := fetch()

	if id1 == "" || id2 == "" {
		t.Fatalf("session ids must be non-empty: %q %q", id1, id2)
	}
	// 两个没带 Cookie 的客户端绝不能共享会话
	if id1 == id2 {
		t.Fatalf("fresh clients must get distinct session ids, both got %q", id1)
	}

	var found bool
	for _, ck := range cookies1 {
		if ck.Name == SessionCookieName && ck.Value == id1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("session cookie not set, cookies: %+v", cookies1)
	}
}

func TestSessionMiddleware_ReusesCookie(t *testing.T) {
	r := newSessionTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "existing-session"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "existing-session" {
		t.Fatalf("existing cookie must be kept, got %q", w.Body.String())
	}
}
