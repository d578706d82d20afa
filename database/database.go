/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SQLiteInMemory = ":memory:"
)

type Config struct {
	Driver   string `json:"driver"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     uint   `json:"port,omitempty"`
	DBName   string `json:"dbname"`
}

func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DBName: "arc4.db",
	}
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverMysql, DriverPostgres:
		if len(c.Host) == 0 {
			return errors.Errorf("host required for %s", c.Driver)
		}
	case DriverSQLite:
	default:
		return errors.Errorf("not support db type:%s", c.Driver)
	}
	if len(c.DBName) == 0 {
		return errors.New("dbname required")
	}
	return nil
}

var zeroDefaultDatetimePrecision = 0

func (c Config) dialector() gorm.Dialector {
	switch c.Driver {
	case DriverMysql:
		return mysql.New(mysql.Config{
			DSN: fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
				c.User, c.Password, c.Host, c.Port, c.DBName),
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
			DefaultDatetimePrecision: &zeroDefaultDatetimePrecision,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		})
	case DriverPostgres:
		return postgres.Open(fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
			c.User, c.Password, c.Host, c.Port, c.DBName))
	default:
		dsn := "file:" + c.DBName
		if len(c.User) > 0 {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += fmt.Sprintf("%s_auth&_auth_user=%s&_auth_pass=%s", sep, c.User, c.Password)
		}
		return sqlite.Open(dsn)
	}
}

// OpenDatabase connects to the configured database. An in-memory sqlite
// database lives only as long as its connection, so the pool is pinned to
// a single connection.
func OpenDatabase(cfg Config, l log.Logger) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = log.GlobalLogger()
	}
	db, err := gorm.Open(cfg.dialector(), &gorm.Config{
		Logger: newDatabaseLogger(l),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open %s database err:%s", cfg.Driver, err.Error())
	}
	if cfg.Driver == DriverSQLite && strings.HasPrefix(cfg.DBName, SQLiteInMemory) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	l.Debugf("database opened driver:%s dbname:%s", cfg.Driver, cfg.DBName)
	return db, nil
}

func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
