package http

import (
	"context"
	"net/http"

	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "expense_session"

type sessionKey struct{}

type sessionState struct {
	id     string
	ledger *ledger.Ledger
}

// withSession resolves the request's ledger, starting a session when needed.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sid, l, created := s.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		logger := log.FromContext(r.Context()).With(log.FieldSessionID, sid)
		ctx := log.NewContext(r.Context(), logger)
		ctx = context.WithValue(ctx, sessionKey{}, sessionState{id: sid, ledger: l})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) (string, *ledger.Ledger) {
	st, _ := ctx.Value(sessionKey{}).(sessionState)
	return st.id, st.ledger
}
