package main

import (
	"context"
	"fmt"
	"refgate/impl/core"
	"refgate/internal/config"
	"refgate/internal/database"
	"time"
)

type store interface {
	core.Database
	Close() error
}

// openDatabase connects the registry backend selected by database.driver.
func openDatabase(conf *config.Config) (store, error) {
	switch conf.Database.Driver {
	case config.DriverSQLite:
		return database.OpenSQLite(conf.SQLite.Path)
	case config.DriverMySQL:
		return database.OpenMySQL(conf.MySql)
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return database.NewMongoClient(ctx, conf.Mongo)
	}
	return nil, fmt.Errorf("unknown database driver: %s", conf.Database.Driver)
}
