package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hnrobert/dharmagate/internal/kv"
	"github.com/hnrobert/dharmagate/internal/logger"
)

const DefaultUsersKey = "hinduDharmaUsers"

var (
	ErrEmailTaken = errors.New("user with this email already exists")
	ErrNotFound   = errors.New("user not found")
)

// Users is the persisted user list. Every mutation is a read-modify-write of
// the whole list under mu, so email uniqueness holds within one process.
type Users struct {
	mu    sync.Mutex
	store kv.Store
	key   string
	now   func() time.Time
}

func NewUsers(store kv.Store, key string) *Users {
	if key == "" {
		key = DefaultUsersKey
	}
	return &Users{store: store, key: key, now: time.Now}
}

func (u *Users) List(ctx context.Context) ([]UserRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loadLocked(ctx)
}

func (u *Users) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	list, err := u.loadLocked(ctx)
	if err != nil {
		return UserRecord{}, err
	}
	if i := indexOfEmail(list, email); i >= 0 {
		return list[i], nil
	}
	return UserRecord{}, ErrNotFound
}

// Create appends rec, assigning ID and CreatedAt. IDs are creation-time
// milliseconds, bumped past the current maximum when two land on the same tick.
func (u *Users) Create(ctx context.Context, rec UserRecord) (UserRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	list, err := u.loadLocked(ctx)
	if err != nil {
		return UserRecord{}, err
	}
	if indexOfEmail(list, rec.Email) >= 0 {
		return UserRecord{}, ErrEmailTaken
	}

	now := u.now().UTC()
	rec.ID = nextID(list, now)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	list = append(list, rec)
	if err := u.saveLocked(ctx, list); err != nil {
		return UserRecord{}, err
	}
	return rec, nil
}

// Update replaces the record with the same ID. The email may not change to
// one held by another record.
func (u *Users) Update(ctx context.Context, rec UserRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	list, err := u.loadLocked(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i := range list {
		if list[i].ID == rec.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if j := indexOfEmail(list, rec.Email); j >= 0 && j != idx {
		return ErrEmailTaken
	}
	list[idx] = rec
	return u.saveLocked(ctx, list)
}

// Import merges a JSON array exported from the browser-only predecessor.
// Plaintext passwords are hashed with hash before anything is persisted.
// Entries without an email or password, whose email is already present, or
// whose password cannot be hashed are skipped.
func (u *Users) Import(ctx context.Context, r io.Reader, hash func(string) (string, error)) (imported, skipped int, err error) {
	var legacy []legacyUser
	if err := json.NewDecoder(r).Decode(&legacy); err != nil {
		return 0, 0, fmt.Errorf("decode legacy users: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	list, err := u.loadLocked(ctx)
	if err != nil {
		return 0, 0, err
	}
	taken := map[int64]bool{}
	for _, rec := range list {
		taken[rec.ID] = true
	}

	for _, lu := range legacy {
		if lu.Email == "" || lu.Password == "" || indexOfEmail(list, lu.Email) >= 0 {
			skipped++
			continue
		}
		h, err := hash(lu.Password)
		if err != nil {
			logger.Warn("Skipping imported user %s: hash password: %v", lu.Email, err)
			skipped++
			continue
		}
		now := u.now().UTC()
		rec := UserRecord{
			ID:           lu.ID,
			FullName:     lu.FullName,
			Email:        lu.Email,
			PasswordHash: h,
			Affiliation:  lu.HinduDharma,
			CreatedAt:    lu.CreatedAt.UTC(),
		}
		if rec.ID <= 0 || taken[rec.ID] {
			rec.ID = nextID(list, now)
		}
		if lu.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		taken[rec.ID] = true
		list = append(list, rec)
		imported++
	}

	if imported == 0 {
		return 0, skipped, nil
	}
	if err := u.saveLocked(ctx, list); err != nil {
		return 0, 0, err
	}
	return imported, skipped, nil
}

func (u *Users) loadLocked(ctx context.Context) ([]UserRecord, error) {
	b, err := u.store.Get(ctx, u.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load users: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var list []UserRecord
	if err := json.Unmarshal(b, &list); err != nil {
		logger.Warn("User list under %q is unreadable, treating it as empty: %v", u.key, err)
		return nil, nil
	}
	return list, nil
}

func (u *Users) saveLocked(ctx context.Context, list []UserRecord) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := u.store.Set(ctx, u.key, b); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func indexOfEmail(list []UserRecord, email string) int {
	for i := range list {
		if list[i].Email == email {
			return i
		}
	}
	return -1
}

func nextID(list []UserRecord, now time.Time) int64 {
	id := now.UnixMilli()
	for _, rec := range list {
		if rec.ID >= id {
			id = rec.ID + 1
		}
	}
	return id
}
