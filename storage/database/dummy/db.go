package dummydb

import (
	"sync"

	"github.com/trezcool/danhgia/core/session"
)

type (
	// DB is an in-memory database, used in DEV when no Postgres database is configured and in tests.
	DB struct {
		session *sessionTable
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]session.Session
	}
)

func Open() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]session.Session)},
	}
}
