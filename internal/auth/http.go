package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ShopCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

// RequireRole lets through requests bearing a valid token with role.
func RequireRole(tm *TokenMaker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := kit.BearerFrom(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := tm.Parse(tok)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			if claims.Role != role {
				kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type tokenReq struct {
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
}

// TokenHandler exchanges the admin password for an access token.
func TokenHandler(admin *Admin, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var req tokenReq
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
			return
		}

		if req.Password == "" {
			kit.WriteError(w, r, http.StatusBadRequest, "password required", nil)
			return
		}

		tok, err := admin.Login(req.Password)
		switch {
		case errors.Is(err, ErrAdminDisabled):
			kit.WriteError(w, r, http.StatusNotFound, "admin login disabled", nil)
			return
		case errors.Is(err, ErrInvalidCredentials):
			log.Info("admin login rejected")
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
			return
		case err != nil:
			log.Error("token issue", zap.Error(err))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}

		kit.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: tok})
	}
}
