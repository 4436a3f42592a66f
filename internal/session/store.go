package session

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 15 * time.Minute

// Store holds at most one Session per user. Sessions expire after the TTL
// measured from their last update.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a store. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		return &Store{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &Store{cache: cache.New(ttl, ttl*2)}
}

func (s *Store) Get(userID int64) (Session, bool) {
	v, ok := s.cache.Get(key(userID))
	if !ok {
		return Session{}, false
	}
	return v.(Session), true
}

func (s *Store) Put(session Session) {
	s.cache.Set(key(session.UserID), session, cache.DefaultExpiration)
}

func (s *Store) Delete(userID int64) {
	s.cache.Delete(key(userID))
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
