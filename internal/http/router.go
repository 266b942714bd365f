package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gestaozabele/midia/internal/auth"
	"github.com/gestaozabele/midia/internal/config"
	httpmiddleware "github.com/gestaozabele/midia/internal/http/middleware"
	"github.com/gestaozabele/midia/internal/storage"
)

// Handler agrega dependências das rotas do serviço de mídia.
type Handler struct {
	cfg     *config.Config
	storage storage.Uploader
	tokens  *auth.Manager
	limiter *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, uploader storage.Uploader) http.Handler {
	h := &Handler{
		cfg:     cfg,
		storage: uploader,
		tokens:  auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL),
		limiter: httpmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.limiter))
		public.Get("/health", h.Health)
	})

	r.Group(func(protected chi.Router) {
		protected.Use(httpmiddleware.IPRateLimit(h.limiter))
		protected.Use(httpmiddleware.Auth(h.tokens))
		protected.Use(httpmiddleware.RequireScope(httpmiddleware.ScopeUpload))
		protected.Post("/v1/imagens", h.UploadImagem)
	})

	return r
}

// Health responde verificação simples de vida.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
