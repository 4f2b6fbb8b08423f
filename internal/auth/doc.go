// Package auth provides authentication and authorization functionality for the panel.
//
// Authentication is local-credential only: LocalProvider handles
// username-or-email plus password login against the database with Argon2id
// password hashing, and the administrative password lifecycle (change, reset).
//
// # Authorization System
//
// Authorization is built on the precedence-ranked role model of the rbac
// package. Users hold a set of role names; the Service resolves those names
// to role records and folds them into a combined role (union of page/action
// permissions plus the highest-authority role). Two independent checks gate
// every sensitive operation:
//   - a page/action permission check against the combined role
//   - a precedence gate comparing actor and target authority
//
// # Permission Checking
//
// The Service type provides methods for checking user permissions:
//   - CombinedRoleFor: resolve the combined role of a user's role-name set
//   - HasPermission: check a (page, action) pair against a user's roles
//   - HighestPrecedenceOf: resolve a user's highest authority rank
//
// # Middleware
//
// Fiber middleware functions are provided for route protection:
//   - RequirePermission: protect routes requiring a (page, action) grant
//
// Example usage:
//
//	// Initialize auth service
//	authService := auth.NewService(db)
//
//	// Check permission in handler
//	allowed, err := authService.HasPermission(userID, rbac.PageUsers, rbac.ActionRead)
//
//	// Protect route with middleware
//	app.Get("/user",
//	    auth.RequirePermission(authService, rbac.PageUsers, rbac.ActionRead),
//	    handler,
//	)
package auth
