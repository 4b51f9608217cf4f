package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranakart/cart-engine/api/controllers"
	"github.com/kiranakart/cart-engine/api/middleware"
	cartsvc "github.com/kiranakart/cart-engine/internal/cart"
	"github.com/kiranakart/cart-engine/internal/catalog"
	"github.com/kiranakart/cart-engine/pkg/config"
	"github.com/kiranakart/cart-engine/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	cartManager *cartsvc.Manager,
	catalogService catalog.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbPinger,
			"redis":    redisPinger,
		}))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(catalogService, logg))
			r.Get("/{productID}/variants/{variantID}", controllers.ProductVariant(catalogService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(
				middleware.RequireDevice(logg),
				middleware.OptionalAuth(cfg.JWT, logg),
			)

			r.Get("/", controllers.CartView(cartManager, logg))
			r.Delete("/", controllers.CartClear(cartManager, logg))
			r.Get("/export", controllers.CartExport(cartManager, logg))

			r.Post("/items", controllers.CartAddItem(cartManager, catalogService, logg))
			r.Post("/items/toggle", controllers.CartToggleItem(cartManager, catalogService, logg))
			r.Patch("/items/{key}", controllers.CartUpdateItem(cartManager, logg))
			r.Post("/items/{key}/increment", controllers.CartIncrementItem(cartManager, logg))
			r.Post("/items/{key}/decrement", controllers.CartDecrementItem(cartManager, logg))
			r.Delete("/items/{key}", controllers.CartRemoveItem(cartManager, logg))

			r.Post("/login-sync", controllers.CartLoginSync(cartManager, logg))
			r.Post("/logout", controllers.CartLogout(cartManager, logg))
		})
	})

	return r
}
