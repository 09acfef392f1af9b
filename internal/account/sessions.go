package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hnrobert/dharmagate/internal/kv"
	"github.com/hnrobert/dharmagate/internal/logger"
)

const DefaultSessionPrefix = "hinduDharmaCurrentUser"

// Sessions stores one SessionRecord per session ID under "<prefix>:<id>".
type Sessions struct {
	store  kv.Store
	prefix string
}

func NewSessions(store kv.Store, prefix string) *Sessions {
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	return &Sessions{store: store, prefix: prefix}
}

func (s *Sessions) key(sid string) string {
	return s.prefix + ":" + sid
}

func (s *Sessions) Save(ctx context.Context, sid string, rec SessionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key(sid), b); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load reports ok=false for unknown, malformed or unreadable-by-key sessions.
// Only backend failures are returned as errors.
func (s *Sessions) Load(ctx context.Context, sid string) (SessionRecord, bool, error) {
	if sid == "" {
		return SessionRecord{}, false, nil
	}
	b, err := s.store.Get(ctx, s.key(sid))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) || errors.Is(err, kv.ErrInvalidKey) {
			return SessionRecord{}, false, nil
		}
		return SessionRecord{}, false, fmt.Errorf("load session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		logger.Warn("Session %s is unreadable, treating it as absent: %v", sid, err)
		return SessionRecord{}, false, nil
	}
	if rec.Email == "" {
		return SessionRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *Sessions) Delete(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	err := s.store.Delete(ctx, s.key(sid))
	if err != nil && !errors.Is(err, kv.ErrInvalidKey) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
