package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aduboahen/juicekart/api/controllers"
	"github.com/aduboahen/juicekart/api/middleware"
	"github.com/aduboahen/juicekart/pkg/config"
	"github.com/aduboahen/juicekart/pkg/logger"
)

// NewRouter assembles the local HTTP surface: liveness, metrics, and the
// hosted-payment return route.
func NewRouter(
	cfg config.AppConfig,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	confirmer controllers.PaymentConfirmer,
	orderService controllers.OrderService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.Healthz(cfg))
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/payments/return", controllers.PaymentReturn(logg, confirmer))

	if orderService != nil {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(logg, orderService))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(logg, orderService))
		})
	}

	return r
}
