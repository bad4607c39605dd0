package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/service"
)

// resolveActor loads the acting identity behind the request token. It writes
// the 401 itself and returns nil when the request carries no usable identity.
func resolveActor(w http.ResponseWriter, r *http.Request, actors *service.ActorResolver, logger *slog.Logger) *authz.Actor {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	actor, err := actors.Resolve(claims.UserID)
	if err != nil {
		logger.Warn("failed to resolve actor",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	return actor
}
