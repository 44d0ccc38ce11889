// Package handlers contains the health checks and middleware of the
// operational HTTP server.
//
// Checks run in parallel, each under its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
//	checker.AddCheck("store", handlers.NewPingCheck(store))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//	checker.AddCheck("discord", handlers.NewBreakerCheck(client.State))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    logger.Warn("not ready", "message", status.Message)
//	}
package handlers
