// Package lifecycle provides Service, a reusable asynchronous start/stop state machine
// for components that bring up several dependent subsystems, optionally wait for a
// long-running readiness condition, and must tear everything down deterministically.
//
// # States
//
//	New -> Starting -> Running -> Stopping -> Terminated
//	             \-> Failed
//
// StartAsync and StopAsync never block. AwaitRunning and AwaitTerminated are the only
// join points and take a context that bounds the wait without affecting the service.
//
// # Failure Policy
//
// A startup error moves the service to Failed after ShutDown was given the chance to
// release whatever was acquired; the error is returned from both awaits as a
// *StartupError. Shutdown errors are logged and never returned, so AwaitTerminated
// always returns once shutdown has been attempted.
//
// # Usage Example
//
//	svc := lifecycle.NewService("example", lifecycle.HookFuncs{
//	    StartUpFunc:  func(ctx context.Context) error { return open(ctx) },
//	    ShutDownFunc: func() error { return closeAll() },
//	})
//	if err := svc.StartAsync(); err != nil {
//	    return err
//	}
//	if err := svc.AwaitRunning(ctx); err != nil {
//	    return err
//	}
//	svc.StopAsync()
//	_ = svc.AwaitTerminated(context.Background())
package lifecycle
