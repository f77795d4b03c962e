package server

func (s *Server) initRoutes() {
	for _, prefix := range []string{"", RouteOAuthPrefix} {
		// Agent and browser facing OAuth handshake
		s.RegisterRouteHandler("GET "+prefix+RouteAuthorize, ChainMiddleware(s.Authorize(), s.APIMiddleware(s.RateLimitByIP)...))
		s.RegisterRouteHandler("GET "+prefix+RouteCallback, ChainMiddleware(s.Callback(), s.HTMLMiddleWare()...))
		s.RegisterRouteHandler("POST "+prefix+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+prefix+RouteRevoke, ChainMiddleware(s.Revoke(), s.APIMiddleware()...))
	}

	// Pass-through to the main app on behalf of the token's user
	s.RegisterRouteHandler(RouteAPIProxy, ChainMiddleware(s.Proxy(), s.APIMiddleware(s.RequireBearer, s.RateLimitByUser)...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.Health(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.metrics.Handler().ServeHTTP, s.APIMiddleware()...))
}
