// Package session implements cookie-backed server sessions on top of a
// pluggable fiber storage backend (mysql, postgres or sqlite, selected by the
// configured database engine).
package session

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/GoUserPanel/GoUserPanel/internal/uniuri"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"

	// idLen is the length of generated session IDs (~190 bits of entropy).
	idLen = 32
)

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure. Only the user's identity is
// stored; roles and permissions are resolved fresh from the database on each
// request, so a role change does not require a re-login.
type Data struct {
	UserID   uint64
	Username string
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Delete removes the session with the given ID from the store.
func Delete(sessionID string) error {
	return Store.Storage.Delete(sessionID)
}

// Init initializes the session store with the provided storage backend.
func Init(storage fiber.Storage) {
	if storage == nil {
		panic("storage is nil")
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() string {
	return uniuri.NewLen(idLen)
}
