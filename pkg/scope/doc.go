// Package scope provides lifetime boundaries for router resources.
//
// A Scope owns a context.Context and a list of finalizers. Forking a scope
// creates a child whose context derives from the parent's, and registers the
// child's closure as one of the parent's finalizers. Closing a scope cancels
// its context first, so anything running under it observes the interrupt, and
// then runs every finalizer in reverse-acquisition order before Close returns.
//
//	root := scope.New(ctx)
//	layer := root.Fork()
//	layer.OnCleanup(func() { conn.Close() })
//
//	// later
//	if err := layer.Close(); err != nil {
//	    logger.Warn("layer teardown failed", "error", err)
//	}
//
// Close is idempotent: the first call performs the teardown, later calls
// return nil without doing anything.
package scope
