package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"go.uber.org/zap"
)

const userIDHeader = "X-User-ID"

type actorKey struct{}

// withActor resolves the X-User-ID header into a user. Authentication
// happens upstream; this only maps the identity to a known user.
func (h *Handler) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "missing or invalid "+userIDHeader+" header", nil)
			return
		}

		user, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			h.logger.Error("Failed to resolve actor", zap.Int64("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error", nil)
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "unknown user", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, user)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "administrator role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(actorKey{}).(*model.User)
	return user
}
