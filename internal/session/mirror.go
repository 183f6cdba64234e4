package session

// Mirror is the on-disk reflection of the in-memory store: one record per
// active session, written before the in-memory state is published so that a
// restart can recover every session still within TTL.
type Mirror interface {
	// Save persists the session record, replacing any previous record for
	// the same user id.
	Save(sess *Session) error

	// Delete removes the record for the user id. Deleting an absent record
	// is not an error.
	Delete(userID int64) error

	// LoadAll returns every stored session record, keyed by user id.
	LoadAll() (map[int64]*Session, error)

	// Close releases any resources held by the mirror.
	Close() error
}

// NoopMirror discards writes and loads nothing. It keeps persistence
// optional in tests and ephemeral deployments.
type NoopMirror struct{}

// Save does nothing.
func (NoopMirror) Save(*Session) error { return nil }

// Delete does nothing.
func (NoopMirror) Delete(int64) error { return nil }

// LoadAll returns an empty map.
func (NoopMirror) LoadAll() (map[int64]*Session, error) {
	return make(map[int64]*Session), nil
}

// Close does nothing.
func (NoopMirror) Close() error { return nil }
