// Package server wraps http.Server with graceful shutdown, environment-driven
// configuration, and an errgroup-compatible Run lifecycle.
//
// Usage:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, handler))
package server
