package auth

import "net/http"

// Flash kinds, used as CSS modifiers by the templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashWarning = "warning"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// AddFlash queues a message on the session. It is persisted by Redirect.
func (m *Manager) AddFlash(r *http.Request, kind, message string) {
	m.session(r).AddFlash(Flash{Kind: kind, Message: message})
}

// Flashes drains queued messages and saves the session so they are shown once.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess := m.session(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	_ = sess.Save(r, w)
	return out
}
