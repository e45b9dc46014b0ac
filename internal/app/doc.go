// Package app wires BuildTrack together and manages its lifecycle.
//
// # Initialization Flow
//
// NewApplication loads configuration and the process logger, then New builds
// everything else in order:
//
//	1. Resolve and create the data, logs and exports directories
//	2. Initialize OpenTelemetry and the business metrics
//	3. Open the store (memory with an optional JSON seed, or PostgreSQL)
//	4. Build the photo fetcher, chart renderer and stage catalog
//	5. Create the websocket hub, session manager and services
//	6. Mount the HTTP routes behind the middleware chain
//
// # Usage
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	application, err := app.NewApplication(ctx)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns once ctx is done. The HTTP server drains in-flight requests
// within Server.ShutdownTimeout, the hub closes every websocket client, and
// the store and chart browser are released.
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit.
package app
