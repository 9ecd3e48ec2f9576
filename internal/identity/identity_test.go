package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeSessionID(t *testing.T) {
	assert.Equal(t, "abc-123", SanitizeSessionID("  abc-123 "))
	assert.Equal(t, "", SanitizeSessionID(""))
	assert.Equal(t, "", SanitizeSessionID("has space"))
	assert.Equal(t, "", SanitizeSessionID("../etc/passwd"))
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, SanitizeSessionID(id))
	assert.NotEqual(t, id, NewSessionID())
}

func TestMiddleware(t *testing.T) {
	var gotIP, gotSession string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = ClientIPFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/chat/history/x?session_id=s-1", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.7", gotIP)
	assert.Equal(t, "s-1", gotSession)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeaderName, "from-header")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "from-header", gotSession)
}
