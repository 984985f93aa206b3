package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
)

// SessionCookie is the cookie carrying the provider session token.
const SessionCookie = "stytch_session"

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Binder turns a provider session into a Principal, typically syncing the
// member into the local users table on the way.
type Binder interface {
	Bind(ctx context.Context, s *Session) (Principal, error)
}

type BinderFunc func(ctx context.Context, s *Session) (Principal, error)

func (f BinderFunc) Bind(ctx context.Context, s *Session) (Principal, error) { return f(ctx, s) }

// Middleware rejects requests without a valid session with 401 and stores
// the bound Principal in the request context.
func Middleware(p Provider, binder Binder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			session, err := p.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				var unauth *appErrors.ErrUnauthorized
				if !errors.As(err, &unauth) {
					logger.Error("session authentication failed", zap.Error(err))
				}
				unauthorized(w)
				return
			}

			principal := session.Principal()
			if binder != nil {
				principal, err = binder.Bind(r.Context(), session)
				if err != nil {
					logger.Error("session binding failed", zap.String("member_id", session.Member.MemberID), zap.Error(err))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
