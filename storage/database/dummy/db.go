// Package dummydb provides an in-memory database backend, meant for tests
// and local hacking without a running postgres.
package dummydb

import (
	"sync"

	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/group"
	"github.com/trezcool/shule/core/subject"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		mu      sync.RWMutex
		user    map[string]*user.User
		group   map[string]*group.Group
		subject map[string]*subject.Subject
		grade   map[string]*grade.Grade
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    make(map[string]*user.User),
		group:   make(map[string]*group.Group),
		subject: make(map[string]*subject.Subject),
		grade:   make(map[string]*grade.Grade),
	}
	return db, nil
}
