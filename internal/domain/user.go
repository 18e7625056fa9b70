package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// User is the identity returned by login and persisted in the "user" credential.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UnmarshalJSON accepts the id either as a number or as a numeric string, since the
// backend and older persisted credentials disagree on the encoding.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		Username string          `json:"username"`
		Email    string          `json:"email"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.ID) == 0 || string(raw.ID) == "null" {
		return errors.New("user id is missing")
	}
	id, err := strconv.ParseInt(strings.Trim(string(raw.ID), `"`), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %s: %w", raw.ID, err)
	}
	u.ID = id
	u.Username = raw.Username
	u.Email = raw.Email
	return nil
}

type Profile struct {
	User        string `json:"user"`
	Address     string `json:"address"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Image       string `json:"image,omitempty"`
}
