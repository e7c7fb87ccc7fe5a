package http

import (
	"net/http"

	"driftbottle/internal/auth"
	"driftbottle/internal/bottle"
	"driftbottle/internal/config"
	"driftbottle/internal/http/handler"
	mw "driftbottle/internal/http/middleware"
	"driftbottle/internal/userstate"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, anonymousUserID uint64) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	states := &userstate.Service{DB: db}
	bottles := &bottle.Service{DB: db, AnonymousUserID: anonymousUserID}

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)
	r.With(auth.RequireAuth(jwtSvc)).Get("/auth/profile", ah.Profile)

	sh := &handler.StateHandler{States: states}
	r.With(auth.OptionalAuth(jwtSvc)).Get("/user/state", sh.Get)
	r.With(auth.RequireAuth(jwtSvc)).Put("/user/state", sh.Update)

	bh := &handler.BottleHandler{Bottles: bottles, States: states}
	r.Route("/bottles", func(r chi.Router) {
		r.With(auth.OptionalAuth(jwtSvc)).Get("/random", bh.Random)
		r.With(auth.OptionalAuth(jwtSvc)).Post("/", bh.Create)
		r.With(auth.OptionalAuth(jwtSvc)).Get("/{id}", bh.Get)
		r.With(auth.RequireAuth(jwtSvc)).Post("/{id}/react", bh.React)
	})

	svh := &handler.SaveHandler{Bottles: bottles}
	r.Route("/user/saves", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", svh.List)
		r.Post("/", svh.Create)
		r.Delete("/{bottleId}", svh.Delete)
	})

	return r
}
