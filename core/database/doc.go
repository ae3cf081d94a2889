// Package database handles database connections.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL connections based on the application's configuration. SQLite is supported as an
// alternative driver for local runs and tests.
//
// # Connect
//
// The generic Connect function establishes a connection to the database, applies
// connection pool settings, and verifies the connection with a ping.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
