package dummydb

import (
	"context"

	"github.com/trezcool/danhgia/core/session"
)

type sessionStore struct {
	db *sessionTable
}

var _ session.Store = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(db *DB) session.Store {
	return &sessionStore{db: db.session}
}

func (store *sessionStore) Save(_ context.Context, sess session.Session) error {
	store.db.Lock()
	defer store.db.Unlock()

	store.db.table[sess.ID] = sess
	return nil
}

func (store *sessionStore) Get(_ context.Context, id string) (session.Session, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	if sess, ok := store.db.table[id]; ok {
		return sess, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (store *sessionStore) Delete(_ context.Context, id string) error {
	store.db.Lock()
	defer store.db.Unlock()

	if _, ok := store.db.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(store.db.table, id)
	return nil
}
