package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"edusocial/internal/config"
	"edusocial/internal/logger"
	"edusocial/internal/service"
)

// Handlers serves the local callback endpoints the payment provider
// redirects the browser to.
type Handlers struct {
	PaymentService service.PaymentService
	Cfg            *config.Config
	Log            logger.Logger

	// OnOutcome, if set, is called after every processed redirect.
	OnOutcome func(*service.PaymentOutcome)
}

func NewHandlers(services *service.Service, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		PaymentService: services.Payment,
		Cfg:            cfg,
		Log:            log,
	}
}

// Router mounts the routes behind CORS and request logging.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/payment/result", h.PaymentResult).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	r.Use(LoggingMiddleware(h.Log), RecoverMiddleware(h.Log))

	// An empty origin list would mean any origin to cors.
	if h.Cfg == nil || h.Cfg.Callback.WebOrigin == "" {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: []string{h.Cfg.Callback.WebOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, map[string]string{"status": "ok"}, http.StatusOK)
}
