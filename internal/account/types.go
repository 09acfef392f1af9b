package account

import "time"

// UserRecord is a persisted account entry. The whole list lives under one key.
type UserRecord struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Affiliation  string    `json:"affiliation"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionRecord is the reduced projection of a UserRecord that marks the
// authenticated identity of one browser.
type SessionRecord struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (u UserRecord) Session() SessionRecord {
	return SessionRecord{ID: u.ID, FullName: u.FullName, Email: u.Email}
}

// legacyUser is the shape of a user entry exported from the browser-only
// predecessor, which stored plaintext passwords.
type legacyUser struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	HinduDharma string    `json:"hinduDharma"`
	CreatedAt   time.Time `json:"createdAt"`
}
