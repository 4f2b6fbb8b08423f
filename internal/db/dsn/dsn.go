// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/GoUserPanel/GoUserPanel/internal/config"
)

// Supported gorm engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Create builds the Data Source Name from the configuration, shaped for the
// configured gorm engine.
func Create(dbCfg *config.Config) string {
	switch dbCfg.DB.GormEngine {
	case EnginePostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d %s",
			dbCfg.DB.Host,
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Name,
			dbCfg.DB.Port,
			dbCfg.DB.Extras,
		)
	case EngineSQLite:
		// Name is the file path; an empty name gives an in-memory database.
		if dbCfg.DB.Name == "" {
			return ":memory:"
		}

		return dbCfg.DB.Name
	default: // mysql
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.Name,
			dbCfg.DB.Extras,
		)
	}
}
