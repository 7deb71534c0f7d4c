package notifier

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/homevault/notifier/internal/auth"
	"github.com/homevault/notifier/internal/domain/recipient"
	pg "github.com/homevault/notifier/internal/repository/postgres"
)

type ctxKey int

const userIDKey ctxKey = 1

func UserIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// AuthMiddleware validates the platform session token and stashes the user id
// in the request context. The token is taken from the Authorization header,
// the auth cookie, or the access_token query parameter (EventSource cannot
// set headers).
func AuthMiddleware(secret []byte, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r, cookieName)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "auth required")
				return
			}
			claims, err := auth.ParseAndValidate(token, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			uid, err := claims.UserID()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
		})
	}
}

func bearerToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return tok
		}
	}
	if tok := r.URL.Query().Get("access_token"); tok != "" {
		return tok
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// resolveRecipient maps the authenticated user to the recipient identity
// notifications are addressed to. A valid session without a backing recipient
// record yields ErrRecipientNotFound; callers decide how soft that is.
func resolveRecipient(ctx context.Context, repo recipient.Repo) (*recipient.Recipient, error) {
	uid, ok := UserIDFromCtx(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	rec, err := repo.GetByUserID(ctx, uid)
	if err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	return rec, nil
}
