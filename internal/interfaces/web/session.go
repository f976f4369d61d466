package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const visitorCookie = "bookingwidget_visitor"

// VisitorCookies tags each browser with a signed visitor id so that log lines
// from its widget mounts can be correlated.
type VisitorCookies struct{ sc *securecookie.SecureCookie }

func NewVisitorCookies(hashKey, blockKey []byte) *VisitorCookies {
	return &VisitorCookies{sc: securecookie.New(hashKey, blockKey)}
}

// Ensure returns the request's visitor id, issuing a new cookie when the
// request carries none or an invalid one.
func (v *VisitorCookies) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := v.VisitorID(r); ok {
		return id, nil
	}
	id := uuid.NewString()
	encoded, err := v.sc.Encode(visitorCookie, map[string]string{"vid": id})
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (v *VisitorCookies) VisitorID(r *http.Request) (string, bool) {
	c, err := r.Cookie(visitorCookie)
	if err != nil {
		return "", false
	}
	value := map[string]string{}
	if err := v.sc.Decode(visitorCookie, c.Value, &value); err != nil {
		return "", false
	}
	id := value["vid"]
	if id == "" {
		return "", false
	}
	return id, true
}
