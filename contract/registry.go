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

package contract

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"

	"github.com/icon-project/arc4-sdk/database"
)

const (
	SpecTableName            = "contract_spec"
	DefaultRegistryCacheSize = 128
)

var (
	SortableSpecColumns = []string{"name", "created_at", "updated_at"}
)

type SpecRecord struct {
	database.Model
	Name    string `json:"name" gorm:"uniqueIndex;size:128"`
	Desc    string `json:"desc"`
	Methods int    `json:"methods"`
	Events  int    `json:"events"`
	Raw     string `json:"-" gorm:"type:text"`
}

type Registry struct {
	repo  database.Repository[SpecRecord]
	cache *lru.Cache
	mtx   sync.Mutex
	l     log.Logger
}

func NewRegistry(db *gorm.DB, cacheSize int, l log.Logger) (*Registry, error) {
	repo, err := database.NewDefaultRepository[SpecRecord](db, SpecTableName)
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultRegistryCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		repo:  repo,
		cache: cache,
		l:     l.WithFields(log.Fields{log.FieldKeyModule: "registry"}),
	}, nil
}

// Register stores an ARC-56 spec under its name, replacing any spec of the
// same name.
func (r *Registry) Register(raw []byte) (*SpecRecord, *Spec, error) {
	s, err := ParseSpec(raw)
	if err != nil {
		return nil, nil, err
	}
	rec := &SpecRecord{
		Name:    s.Name,
		Desc:    s.Desc,
		Methods: len(s.Methods),
		Events:  len(s.EventMap),
		Raw:     string(raw),
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	err = r.repo.Transaction(func(tx database.Repository[SpecRecord]) error {
		found, err := tx.FindOne("name = ?", s.Name)
		if err != nil {
			return err
		}
		if found != nil {
			rec.ID = found.ID
			rec.CreatedAt = found.CreatedAt
		}
		return tx.Save(rec)
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "fail to save spec %s err:%s", s.Name, err.Error())
	}
	r.cache.Add(s.Name, s)
	r.l.Debugf("register contract:%s id:%d methods:%d", s.Name, rec.ID, rec.Methods)
	return rec, s, nil
}

func (r *Registry) Record(name string) (*SpecRecord, error) {
	rec, err := r.repo.FindOne("name = ?", name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrorCodeNotFoundContract.Errorf("not found contract %s", name)
	}
	return rec, nil
}

// Get returns the parsed spec. A cache miss is filled while holding the
// same lock as Register and Delete, so a removed spec is never cached again.
func (r *Registry) Get(name string) (*Spec, error) {
	if v, ok := r.cache.Get(name); ok {
		return v.(*Spec), nil
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if v, ok := r.cache.Get(name); ok {
		return v.(*Spec), nil
	}
	rec, err := r.Record(name)
	if err != nil {
		return nil, err
	}
	s, err := ParseSpec([]byte(rec.Raw))
	if err != nil {
		return nil, errors.Wrapf(err, "fail to parse stored spec %s", name)
	}
	r.cache.Add(name, s)
	return s, nil
}

func (r *Registry) List(p database.Pageable) (*database.Page[SpecRecord], error) {
	if err := p.CheckSort(SortableSpecColumns...); err != nil {
		return nil, ErrorCodeInvalidParam.Wrapf(err, "invalid pageable err:%s", err.Error())
	}
	if len(p.Sort) == 0 {
		p.Sort = "name"
	}
	return r.repo.Page(p, nil)
}

func (r *Registry) Delete(name string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	n, err := r.repo.Delete("name = ?", name)
	if err != nil {
		return err
	}
	r.cache.Remove(name)
	if n == 0 {
		return ErrorCodeNotFoundContract.Errorf("not found contract %s", name)
	}
	r.l.Debugf("delete contract:%s", name)
	return nil
}

// EncodeCall returns the application args of a method call. args is a
// positional list or a map keyed by argument name.
func (r *Registry) EncodeCall(name, method string, args interface{}) (*MethodSpec, [][]byte, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.FindMethod(method)
	if err != nil {
		return nil, nil, err
	}
	values, err := ArgsOf(m.Method, args)
	if err != nil {
		return nil, nil, err
	}
	appArgs, err := m.Method.EncodeArgs(values...)
	if err != nil {
		return nil, nil, err
	}
	return m, appArgs, nil
}

func (r *Registry) DecodeReturn(name, method string, log []byte) (*MethodSpec, interface{}, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.FindMethod(method)
	if err != nil {
		return nil, nil, err
	}
	v, err := m.Method.DecodeReturn(log)
	if err != nil {
		return nil, nil, err
	}
	return m, v, nil
}

func (r *Registry) DecodeEvent(name string, log []byte) (*EventSpec, map[string]interface{}, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return s.DecodeEvent(log)
}
