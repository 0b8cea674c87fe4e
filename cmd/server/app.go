package main

import (
	"net/http"

	"github.com/diewo77/go-tutoring/internal/handlers"
	"github.com/diewo77/go-tutoring/internal/middleware"
)

// App is the root handler: the routes behind the global middleware chain.
type App struct {
	mux       *http.ServeMux
	handler   http.Handler
	routerCfg *handlers.RouterConfig
}

// NewApp builds the router from deps. The chain runs, outermost first,
// recovery, request id, access log and session identity.
func NewApp(deps handlers.Deps) *App {
	app := &App{
		mux:       http.NewServeMux(),
		routerCfg: handlers.NewRouterConfig(deps),
	}
	app.routerCfg.Register(app.mux)
	app.handler = middleware.Chain(app.mux,
		middleware.Recovery(deps.Log),
		middleware.RequestID(deps.Log),
		middleware.Logger(deps.Log),
		deps.Sessions.Middleware,
	)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}
