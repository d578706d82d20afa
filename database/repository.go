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
	"database/sql"
	"strings"
	"time"

	"github.com/icon-project/btp2/common/errors"
	"gorm.io/gorm"
)

type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pageable struct {
	// Page 0-indexed
	Page uint `json:"page" query:"page"`
	// Size zero for unlimited
	Size uint `json:"size" query:"size"`
	// Sort for example "FIELD desc,FIELD"
	Sort string `json:"sort,omitempty" query:"sort"`
}

// CheckSort accepts a sort clause only when each term names one of columns,
// optionally followed by asc or desc.
func (p Pageable) CheckSort(columns ...string) error {
	if len(p.Sort) == 0 {
		return nil
	}
	for _, term := range strings.Split(p.Sort, ",") {
		s := strings.Fields(term)
		if len(s) == 0 || len(s) > 2 {
			return errors.Errorf("invalid sort %q", p.Sort)
		}
		if len(s) == 2 {
			if d := strings.ToLower(s[1]); d != "asc" && d != "desc" {
				return errors.Errorf("invalid sort direction %q", s[1])
			}
		}
		allowed := false
		for _, c := range columns {
			if s[0] == c {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.Errorf("not sortable column %q", s[0])
		}
	}
	return nil
}

type Page[T any] struct {
	Content       []T      `json:"content"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
	Pageable      Pageable `json:"pageable"`
}

// Map converts the content of a page, keeping its paging information.
func Map[T, R any](p *Page[T], f func(v T) R) *Page[R] {
	r := &Page[R]{
		Content:       make([]R, len(p.Content)),
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Pageable:      p.Pageable,
	}
	for i, e := range p.Content {
		r.Content[i] = f(e)
	}
	return r
}

type Repository[T any] interface {
	Save(v *T) error
	Delete(query interface{}, conds ...interface{}) (int64, error)
	Exists(query interface{}, conds ...interface{}) (bool, error)
	Count(query interface{}, conds ...interface{}) (int64, error)
	FindOne(query interface{}, conds ...interface{}) (*T, error)
	Find(query interface{}, conds ...interface{}) ([]T, error)
	FindWithOrder(order string, query interface{}, conds ...interface{}) ([]T, error)
	Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error)
	Transaction(fc func(tx Repository[T]) error, opts ...*sql.TxOptions) error
}

type DefaultRepository[T any] struct {
	db   *gorm.DB
	name string
}

func NewDefaultRepository[T any](db *gorm.DB, name string) (*DefaultRepository[T], error) {
	if err := db.Table(name).AutoMigrate(new(T)); err != nil {
		return nil, errors.Wrapf(err, "fail to migrate table %s err:%s", name, err.Error())
	}
	return &DefaultRepository[T]{
		db:   db,
		name: name,
	}, nil
}

func (r *DefaultRepository[T]) table() *gorm.DB {
	if len(r.name) > 0 {
		return r.db.Table(r.name)
	}
	return r.db.Model(new(T))
}

func (r *DefaultRepository[T]) where(query interface{}, conds ...interface{}) *gorm.DB {
	ret := r.table()
	if query != nil {
		ret = ret.Where(query, conds...)
	}
	return ret
}

// filterError hides gorm.ErrRecordNotFound, so that a missing record is a
// nil result without error.
func filterError(err error) error {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (r *DefaultRepository[T]) Save(v *T) error {
	return r.table().Save(v).Error
}

func (r *DefaultRepository[T]) Delete(query interface{}, conds ...interface{}) (int64, error) {
	if query == nil {
		return 0, errors.New("delete requires a condition")
	}
	ret := r.where(query, conds...).Delete(new(T))
	return ret.RowsAffected, ret.Error
}

func (r *DefaultRepository[T]) Exists(query interface{}, conds ...interface{}) (bool, error) {
	count, err := r.Count(query, conds...)
	return count > 0, err
}

func (r *DefaultRepository[T]) Count(query interface{}, conds ...interface{}) (int64, error) {
	var count int64
	if err := r.where(query, conds...).Count(&count).Error; err != nil {
		return -1, err
	}
	return count, nil
}

func (r *DefaultRepository[T]) FindOne(query interface{}, conds ...interface{}) (*T, error) {
	v := new(T)
	if err := r.where(query, conds...).First(v).Error; err != nil {
		return nil, filterError(err)
	}
	return v, nil
}

func (r *DefaultRepository[T]) Find(query interface{}, conds ...interface{}) ([]T, error) {
	var l []T
	if err := r.where(query, conds...).Find(&l).Error; err != nil {
		return nil, filterError(err)
	}
	return l, nil
}

func (r *DefaultRepository[T]) FindWithOrder(order string, query interface{}, conds ...interface{}) ([]T, error) {
	var l []T
	if err := r.where(query, conds...).Order(order).Find(&l).Error; err != nil {
		return nil, filterError(err)
	}
	return l, nil
}

func (r *DefaultRepository[T]) Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error) {
	count, err := r.Count(query, conds...)
	if err != nil {
		return nil, err
	}
	ret := r.where(query, conds...)
	if p.Size > 0 {
		ret = ret.Offset(int(p.Page * p.Size)).Limit(int(p.Size))
	}
	if len(p.Sort) > 0 {
		ret = ret.Order(p.Sort)
	}
	var l []T
	if err = ret.Find(&l).Error; err != nil {
		return nil, filterError(err)
	}
	totalPages := 0
	if count > 0 {
		totalPages = 1
		if p.Size > 0 {
			totalPages = int((count + int64(p.Size) - 1) / int64(p.Size))
		}
	}
	return &Page[T]{
		Content:       l,
		TotalElements: int(count),
		TotalPages:    totalPages,
		Pageable:      p,
	}, nil
}

func (r *DefaultRepository[T]) Transaction(fc func(tx Repository[T]) error, opts ...*sql.TxOptions) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fc(&DefaultRepository[T]{db: tx, name: r.name})
	}, opts...)
}
