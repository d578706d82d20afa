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
	"context"
	"errors"
	"time"

	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultLogSlowThreshold = time.Millisecond * 200
)

// databaseLogger routes gorm logs to a btp2 logger. Statements are traced,
// slow statements warned and failed statements logged as errors.
type databaseLogger struct {
	l             log.Logger
	slowThreshold time.Duration
}

func newDatabaseLogger(l log.Logger) *databaseLogger {
	return &databaseLogger{
		l:             l.WithFields(log.Fields{log.FieldKeyModule: "database"}),
		slowThreshold: DefaultLogSlowThreshold,
	}
}

func levelOf(level logger.LogLevel) log.Level {
	switch level {
	case logger.Silent:
		return log.PanicLevel
	case logger.Error:
		return log.ErrorLevel
	case logger.Warn:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func (l *databaseLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.l.SetLevel(levelOf(level))
	return l
}

func (l *databaseLogger) Info(_ context.Context, msg string, data ...interface{}) {
	l.l.Logf(log.InfoLevel, msg, data...)
}

func (l *databaseLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	l.l.Logf(log.WarnLevel, msg, data...)
}

func (l *databaseLogger) Error(_ context.Context, msg string, data ...interface{}) {
	l.l.Logf(log.ErrorLevel, msg, data...)
}

func (l *databaseLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	lv := l.l.GetLevel()
	if lv <= log.PanicLevel {
		return
	}
	elapsed := time.Since(begin)
	ms := float64(elapsed.Nanoseconds()) / 1e6
	switch {
	case err != nil && lv >= log.ErrorLevel && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.l.Logf(log.ErrorLevel, "err:%s [%.3fms] [rows:%v] %s", err, ms, rows, sql)
	case elapsed > l.slowThreshold && lv >= log.WarnLevel:
		sql, rows := fc()
		l.l.Logf(log.WarnLevel, "SLOW SQL >= %v [%.3fms] [rows:%v] %s", l.slowThreshold, ms, rows, sql)
	case lv >= log.TraceLevel:
		sql, rows := fc()
		l.l.Logf(log.TraceLevel, "[%.3fms] [rows:%v] %s", ms, rows, sql)
	}
}
