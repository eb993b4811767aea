// Package inmemdb holds in-memory repositories, used by tests and local runs without postgres.
package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/record"
	"github.com/trezcool/academia/core/roster"
	"github.com/trezcool/academia/core/user"
)

type (
	DB struct {
		user    *userTable
		student *studentTable
		record  *recordTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*roster.Student
	}

	recordTable struct {
		sync.RWMutex
		table map[string]*record.Record
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{table: make(map[string]*roster.Student)},
		record:  &recordTable{table: make(map[string]*record.Record)},
	}
}
