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
	"testing"
	"time"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
)

var (
	dbConfig = Config{
		Driver: DriverSQLite,
		DBName: SQLiteInMemory,
	}
)

type Record struct {
	Model
	Name  string `gorm:"uniqueIndex"`
	Value string
}

func assertEqualRecord(t *testing.T, expected, actual Record) bool {
	if !assert.Equal(t, expected.ID, actual.ID) {
		return false
	}
	if !assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt)) {
		return false
	}
	return assert.Equal(t, expected.Name, actual.Name) &&
		assert.Equal(t, expected.Value, actual.Value)
}

func newTestRepository(t *testing.T) *DefaultRepository[Record] {
	db, err := OpenDatabase(dbConfig, log.GlobalLogger())
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	t.Cleanup(func() {
		_ = CloseDatabase(db)
	})
	r, err := NewDefaultRepository[Record](db, "record")
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	return r
}

func Test_ConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, dbConfig.Validate())
	assert.Error(t, Config{Driver: "oracle", DBName: "x"}.Validate())
	assert.Error(t, Config{Driver: DriverMysql, DBName: "x"}.Validate())
	assert.Error(t, Config{Driver: DriverSQLite}.Validate())

	_, err := OpenDatabase(Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func Test_Repository(t *testing.T) {
	r := newTestRepository(t)

	count, err := r.Count(nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	var l []*Record
	for i := 0; i < 3; i++ {
		s := &Record{
			Name:  fmt.Sprintf("name_%d", i),
			Value: fmt.Sprintf("value_%d", i),
		}
		assert.NoError(t, r.Save(s))
		assert.True(t, s.ID > 0)
		assert.False(t, time.Time{}.Equal(s.CreatedAt))

		found, err := r.FindOne("name = ?", s.Name)
		assert.NoError(t, err)
		if assert.NotNil(t, found) {
			assertEqualRecord(t, *s, *found)
		}
		l = append(l, s)
	}

	found, err := r.FindOne("name = ?", "none")
	assert.NoError(t, err)
	assert.Nil(t, found)

	count, err = r.Count(nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(l)), count)

	rl, err := r.Find(nil)
	assert.NoError(t, err)
	if assert.Len(t, rl, len(l)) {
		for i, s := range l {
			assertEqualRecord(t, *s, rl[i])
		}
	}

	rl, err = r.FindWithOrder("name desc", nil)
	assert.NoError(t, err)
	if assert.Len(t, rl, len(l)) {
		for i, s := range l {
			assertEqualRecord(t, *s, rl[len(l)-1-i])
		}
	}

	l[1].Value = "updated"
	assert.NoError(t, r.Save(l[1]))
	found, err = r.FindOne(&Record{Name: l[1].Name})
	assert.NoError(t, err)
	if assert.NotNil(t, found) {
		assert.Equal(t, "updated", found.Value)
	}

	for _, s := range l {
		exists, err := r.Exists("name = ?", s.Name)
		assert.NoError(t, err)
		assert.True(t, exists)

		n, err := r.Delete("name = ?", s.Name)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), n)

		exists, err = r.Exists("name = ?", s.Name)
		assert.NoError(t, err)
		assert.False(t, exists)
	}
	_, err = r.Delete(nil)
	assert.Error(t, err)
}

func Test_RepositoryPage(t *testing.T) {
	r := newTestRepository(t)
	var l []*Record
	for i := 0; i < 5; i++ {
		s := &Record{Name: fmt.Sprintf("name_%d", i)}
		assert.NoError(t, r.Save(s))
		l = append(l, s)
	}

	page, err := r.Page(Pageable{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, len(l), page.TotalElements)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Content, len(l))

	p := Pageable{Page: 1, Size: 2}
	page, err = r.Page(p, nil)
	assert.NoError(t, err)
	assert.Equal(t, len(l), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	if assert.Len(t, page.Content, 2) {
		assertEqualRecord(t, *l[2], page.Content[0])
		assertEqualRecord(t, *l[3], page.Content[1])
	}

	p.Sort = "name desc"
	page, err = r.Page(p, nil)
	assert.NoError(t, err)
	if assert.Len(t, page.Content, 2) {
		assertEqualRecord(t, *l[2], page.Content[0])
		assertEqualRecord(t, *l[1], page.Content[1])
	}

	names := Map(page, func(v Record) string { return v.Name })
	assert.Equal(t, []string{"name_2", "name_1"}, names.Content)
	assert.Equal(t, page.TotalPages, names.TotalPages)

	page, err = r.Page(Pageable{Page: 10, Size: 2}, nil)
	assert.NoError(t, err)
	assert.Len(t, page.Content, 0)
	assert.Equal(t, len(l), page.TotalElements)
}

func Test_RepositoryTransaction(t *testing.T) {
	r := newTestRepository(t)
	rollback := errors.New("rollback")
	err := r.Transaction(func(tx Repository[Record]) error {
		if err := tx.Save(&Record{Name: "tx"}); err != nil {
			return err
		}
		exists, err := tx.Exists("name = ?", "tx")
		assert.NoError(t, err)
		assert.True(t, exists)
		return rollback
	})
	assert.Equal(t, rollback, err)
	exists, err := r.Exists("name = ?", "tx")
	assert.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, r.Transaction(func(tx Repository[Record]) error {
		return tx.Save(&Record{Name: "tx"})
	}))
	exists, err = r.Exists("name = ?", "tx")
	assert.NoError(t, err)
	assert.True(t, exists)
}

func Test_PageableCheckSort(t *testing.T) {
	columns := []string{"name", "created_at"}
	for _, s := range []string{"", "name", "name desc", "name ASC, created_at desc"} {
		assert.NoError(t, Pageable{Sort: s}.CheckSort(columns...), s)
	}
	for _, s := range []string{"id", "name down", "name desc extra", "name;drop table x", ","} {
		assert.Error(t, Pageable{Sort: s}.CheckSort(columns...), s)
	}
}
