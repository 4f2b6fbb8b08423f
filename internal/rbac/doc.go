// Package rbac implements the precedence-ranked role and permission model.
//
// Roles are ranked by an integer precedence where a lower value means higher
// authority (precedence 1 is the most powerful role). A user holds a set of
// role names and their effective permissions are the union, per page, of the
// actions granted by every assigned role. Two independent checks gate actions:
//
//   - IsAllowed answers whether a combined role grants a (page, action) pair.
//   - CanActOn answers whether an actor may touch a target at all, based on
//     relative precedence, regardless of page/action grants.
//
// Both checks must pass for a precedence-sensitive action to proceed. All
// functions in this package are pure and never touch the database; the web
// handlers resolve role records through the db controllers and feed them in.
package rbac
