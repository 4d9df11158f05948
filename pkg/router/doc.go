// Package router implements reactive route matching with managed resource
// lifetimes.
//
// The router provides:
//   - A fluent, immutable route tree (Match, Guard, Provide, Layout, Catch, Prefix, Merge)
//   - Compilation into an ordered route table with ancestor context
//   - A case-insensitive trie over literal and parameter segments
//   - Ordered guard evaluation with accumulated failure causes
//   - Incremental dependency layers with commit/rollback
//   - Layouts and catch boundaries that stay mounted across transitions
//
// # Route Trees
//
// Route trees are plain values. Every builder call returns a new tree:
//
//	users := router.Match("/", userList).
//	    Match("/:id:int", userPage, router.WithParams[UserParams]()).
//	    Prefix("/users").
//	    Layout(usersLayout)
//
//	app := router.Merge(users, router.Match("/admin", adminPage, router.WithGuard(requireAdmin))).
//	    Provide(configLayer, dbLayer).
//	    Catch(errorPage)
//
// # Running
//
// Run follows a Location (any source of the current path) and produces one
// content stream. Transitions that are superseded by a newer path are
// cancelled and rolled back before they can commit:
//
//	nav := navigation.New("/users")
//	r, err := router.New(app, router.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	err = stream.Run(ctx, r.Run(nav), render)
//
// # Failures
//
// Resolution failures are typed values delivered through the content
// stream: *NotFoundError, *DecodeError and *GuardError. A catch boundary
// that wraps every route receives them as its cause; without one the stream
// fails.
package router
