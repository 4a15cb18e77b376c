package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ShopCatalog/internal/auth"
	"ShopCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

// Locales picks a formatter from an explicit locale or an Accept-Language
// header.
type Locales interface {
	Select(locale, acceptLanguage string) Formatter
}

// Notifier is told about successful catalog changes.
type Notifier interface {
	ProductCreated(ctx context.Context, p Product) error
	ProductReviewed(ctx context.Context, p Product, r Review) error
}

type Server struct {
	Store   Store
	Log     *zap.Logger
	Locales Locales
	Events  Notifier

	// ReviewLimiter throttles review submissions per client IP when set.
	ReviewLimiter *kit.IPRateLimiter
	// LoginLimiter throttles admin password attempts the same way.
	LoginLimiter *kit.IPRateLimiter

	// Admin endpoints are mounted only when both are set.
	Admin  *auth.Admin
	Tokens *auth.TokenMaker
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/products", s.list)
	r.Post("/products", s.create)
	r.Get("/products/report", s.printProducts)
	r.Get("/products/{id}", s.get)
	r.Get("/products/{id}/report", s.report)
	r.With(limited(s.ReviewLimiter)...).Post("/products/{id}/reviews", s.review)
	r.Get("/discounts", s.discounts)

	if s.Admin != nil && s.Tokens != nil {
		r.With(limited(s.LoginLimiter)...).Post("/auth/token", auth.TokenHandler(s.Admin, s.logger()))
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(s.Tokens, auth.RoleAdmin))
			r.Post("/dump", s.dump)
			r.Post("/restore", s.restore)
		})
	}

	return r
}

func limited(l *kit.IPRateLimiter) []func(http.Handler) http.Handler {
	if l == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{l.Middleware}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) formatter(r *http.Request) Formatter {
	return s.Locales.Select(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language"))
}

// writeStoreError maps store errors onto HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": chi.URLParam(r, "id")})
	case errors.Is(err, ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNoSnapshot):
		kit.WriteError(w, r, http.StatusNotFound, "no snapshot", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "request canceled", nil)
	default:
		s.logger().Error(op+" failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad product id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = "failed on '" + fe.Tag() + "' validation"
			}
			kit.WriteError(w, r, http.StatusBadRequest, "validation failed", fields)
			return false
		}
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "list products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := s.Store.Entry(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "get product")
		return
	}
	kit.WriteJSON(w, http.StatusOK, e)
}

type createReq struct {
	ID         int    `json:"id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,max=100"`
	Price      string `json:"price" validate:"required,numeric"`
	Rating     int    `json:"rating" validate:"gte=0,lte=5"`
	BestBefore string `json:"best_before" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad price", map[string]any{"price": req.Price})
		return
	}
	spec := ProductSpec{ID: req.ID, Name: strings.TrimSpace(req.Name), Price: price, Rating: Rating(req.Rating)}
	if req.BestBefore != "" {
		bb, err := time.Parse(dateLayout, req.BestBefore)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad best_before", nil)
			return
		}
		spec.BestBefore = &bb
	}

	p, created, err := s.Store.CreateProduct(r.Context(), spec)
	if err != nil {
		s.writeStoreError(w, r, err, "create product")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		if s.Events != nil {
			if err := s.Events.ProductCreated(r.Context(), p); err != nil {
				s.logger().Warn("product created event not published", zap.Int("product_id", p.ID()), zap.Error(err))
			}
		}
	}
	kit.WriteJSON(w, status, p)
}

type reviewReq struct {
	Rating   int    `json:"rating" validate:"gte=0,lte=5"`
	Comments string `json:"comments" validate:"max=1000"`
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reviewReq
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rev := Review{Rating: Rating(req.Rating), Comments: req.Comments}
	p, err := s.Store.ReviewProduct(r.Context(), id, rev.Rating, rev.Comments)
	if err != nil {
		s.writeStoreError(w, r, err, "review product")
		return
	}

	if s.Events != nil {
		if err := s.Events.ProductReviewed(r.Context(), p, rev); err != nil {
			s.logger().Warn("product reviewed event not published", zap.Int("product_id", id), zap.Error(err))
		}
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var sb strings.Builder
	if err := s.Store.PrintProductReport(r.Context(), id, s.formatter(r), &sb); err != nil {
		s.writeStoreError(w, r, err, "product report")
		return
	}
	kit.WriteText(w, http.StatusOK, sb.String())
}

func (s *Server) printProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sorter, ok := SorterByName(q.Get("sort"))
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "unknown sort", map[string]any{"sort": q.Get("sort")})
		return
	}

	filters := []Filter{}
	if raw := q.Get("min_rating"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > int(FiveStar) {
			kit.WriteError(w, r, http.StatusBadRequest, "bad min_rating", map[string]any{"min_rating": raw})
			return
		}
		filters = append(filters, MinRating(Rating(n)))
	}
	if raw := q.Get("kind"); raw != "" {
		k, err := ParseKind(raw)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad kind", map[string]any{"kind": raw})
			return
		}
		filters = append(filters, OfKind(k))
	}

	var sb strings.Builder
	if err := s.Store.PrintProducts(r.Context(), And(filters...), sorter, s.formatter(r), &sb); err != nil {
		s.writeStoreError(w, r, err, "print products")
		return
	}
	kit.WriteText(w, http.StatusOK, sb.String())
}

func (s *Server) discounts(w http.ResponseWriter, r *http.Request) {
	out, err := s.Store.Discounts(r.Context(), s.formatter(r))
	if err != nil {
		s.writeStoreError(w, r, err, "discounts")
		return
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) dump(w http.ResponseWriter, r *http.Request) {
	handle, err := s.Store.Dump(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "dump")
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]string{"snapshot": handle})
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Restore(r.Context()); err != nil {
		s.writeStoreError(w, r, err, "restore")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
