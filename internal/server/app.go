package server

import (
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/packstore/internal/access"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/storage"
)

// AppOptions carries everything the HTTP surface needs.
type AppOptions struct {
	Packs         *repositories.PackRepository
	Tracks        *repositories.TrackRepository
	Orders        *repositories.OrderRepository
	Entitlements  *repositories.EntitlementRepository
	Subscribers   *repositories.SubscriberRepository
	Verifier      *access.Verifier
	Store         storage.Store
	GatewaySecret string
	RateLimit     float64
	RateBurst     int
	Logger        *log.Logger
}

// NewAppRouter wires every handler and middleware into a [BasicRouter].
func NewAppRouter(opts AppOptions) *BasicRouter {
	router := NewBasicRouter()

	router.Use(LoggingMiddleware(opts.Logger))
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		router.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}

	router.Handler(NewDownloadsHandler(opts.Entitlements, opts.Tracks, opts.Verifier, opts.Logger))
	router.Handler(NewTrackDownloadHandler(opts.Tracks, opts.Verifier, opts.Store, opts.Logger))
	router.Handler(NewOrdersHandler(opts.Orders, opts.Entitlements, opts.GatewaySecret, opts.Logger))
	router.Handler(NewStockHandler(opts.Packs, opts.Logger))
	router.Handler(NewSubscribeHandler(opts.Subscribers, opts.Logger))

	return router
}
