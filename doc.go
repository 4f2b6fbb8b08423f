// Package main provides the entry point for the user management panel.
// It initializes and runs a web server using the Fiber framework that lets
// administrators manage user accounts and precedence-ranked roles through a
// REST API. The application uses gorm for data persistence and combines a
// user's roles into a single effective permission set per request.
package main
