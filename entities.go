/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package authstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/suparena/authstore/errors"
)

// User is the typed view of a users row.
type User struct {
	Username     string
	Role         string
	Hash         string
	Email        strfmt.Email
	Description  string
	CreationDate strfmt.DateTime
	LastLogin    strfmt.DateTime
}

// Validate checks the key and the email format.
func (u User) Validate() error {
	if u.Username == "" {
		return errors.NewValidationError(ColUsername, "username is required")
	}
	return validateEmail(u.Email)
}

// Fields returns the value columns of u. Zero timestamps are left unset.
func (u User) Fields() map[string]any {
	return map[string]any{
		ColRole:         u.Role,
		ColHash:         u.Hash,
		ColEmailAddr:    u.Email.String(),
		ColDesc:         u.Description,
		ColCreationDate: formatDateTime(u.CreationDate),
		ColLastLogin:    formatDateTime(u.LastLogin),
	}
}

// UserFromMapping builds a User from a users row.
func UserFromMapping(username string, fields map[string]any) (User, error) {
	u := User{
		Username:    username,
		Role:        text(fields, ColRole),
		Hash:        text(fields, ColHash),
		Email:       strfmt.Email(text(fields, ColEmailAddr)),
		Description: text(fields, ColDesc),
	}
	var err error
	if u.CreationDate, err = parseDateTime(fields, ColCreationDate); err != nil {
		return User{}, err
	}
	if u.LastLogin, err = parseDateTime(fields, ColLastLogin); err != nil {
		return User{}, err
	}
	return u, nil
}

// PendingRegistration is a user waiting for email confirmation.
type PendingRegistration struct {
	ID   string
	Code string
	User
}

// NewPendingRegistration wraps u with a fresh id and confirmation code.
func NewPendingRegistration(u User) PendingRegistration {
	if time.Time(u.CreationDate).IsZero() {
		u.CreationDate = strfmt.DateTime(time.Now().UTC())
	}
	return PendingRegistration{
		ID:   NewPendingRegistrationID(),
		Code: NewRegistrationCode(),
		User: u,
	}
}

// Validate checks the id, the code and the embedded user.
func (p PendingRegistration) Validate() error {
	if p.ID == "" {
		return errors.NewValidationError(ColPendingRegID, "registration id is required")
	}
	if p.Code == "" {
		return errors.NewValidationError(ColCode, "registration code is required")
	}
	return p.User.Validate()
}

// Fields returns the value columns of p.
func (p PendingRegistration) Fields() map[string]any {
	fields := p.User.Fields()
	fields[ColCode] = p.Code
	fields[ColUsername] = p.Username
	return fields
}

// PendingRegistrationFromMapping builds a PendingRegistration from a register row.
func PendingRegistrationFromMapping(id string, fields map[string]any) (PendingRegistration, error) {
	u, err := UserFromMapping(text(fields, ColUsername), fields)
	if err != nil {
		return PendingRegistration{}, err
	}
	return PendingRegistration{ID: id, Code: text(fields, ColCode), User: u}, nil
}

// NewPendingRegistrationID returns a random registration key.
func NewPendingRegistrationID() string {
	return uuid.NewString()
}

// NewRegistrationCode returns a random confirmation code.
func NewRegistrationCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SaveUser validates u and upserts it into the users table.
func (b *Backend) SaveUser(ctx context.Context, u User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	return b.Users.Set(ctx, u.Username, u.Fields())
}

// User loads the user stored under username.
func (b *Backend) User(ctx context.Context, username string) (User, error) {
	row, err := b.Users.Get(ctx, username)
	if err != nil {
		return User{}, err
	}
	return UserFromMapping(username, row.Fields())
}

// TouchLogin sets the last login time of username to now.
func (b *Backend) TouchLogin(ctx context.Context, username string) error {
	row, err := b.Users.Get(ctx, username)
	if err != nil {
		return err
	}
	return row.Set(ctx, ColLastLogin, formatDateTime(strfmt.DateTime(time.Now().UTC())))
}

// SavePendingRegistration validates p and upserts it into the register table.
func (b *Backend) SavePendingRegistration(ctx context.Context, p PendingRegistration) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return b.PendingRegistrations.Set(ctx, p.ID, p.Fields())
}

// PendingRegistration loads the registration stored under id.
func (b *Backend) PendingRegistration(ctx context.Context, id string) (PendingRegistration, error) {
	row, err := b.PendingRegistrations.Get(ctx, id)
	if err != nil {
		return PendingRegistration{}, err
	}
	return PendingRegistrationFromMapping(id, row.Fields())
}

// ConfirmRegistration moves the registration id into the users table once
// code matches. The user must not exist yet.
func (b *Backend) ConfirmRegistration(ctx context.Context, id, code string) (User, error) {
	p, err := b.PendingRegistration(ctx, id)
	if err != nil {
		return User{}, err
	}
	if p.Code != code {
		return User{}, errors.NewValidationError(ColCode, "registration code does not match")
	}
	exists, err := b.Users.Contains(ctx, p.Username)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, errors.NewAlreadyExistsError("user", p.Username)
	}
	if err := b.SaveUser(ctx, p.User); err != nil {
		return User{}, err
	}
	if _, err := b.PendingRegistrations.Delete(ctx, id); err != nil {
		return User{}, err
	}
	return p.User, nil
}

func validateEmail(e strfmt.Email) error {
	if e == "" {
		return nil
	}
	if !strfmt.IsEmail(e.String()) {
		return errors.NewValidationError(ColEmailAddr, fmt.Sprintf("%q is not a valid email address", e.String()))
	}
	return nil
}

func text(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func formatDateTime(dt strfmt.DateTime) any {
	if time.Time(dt).IsZero() {
		return nil
	}
	return time.Time(dt).UTC().Format(time.RFC3339)
}

func parseDateTime(fields map[string]any, name string) (strfmt.DateTime, error) {
	s := text(fields, name)
	if s == "" {
		return strfmt.DateTime{}, nil
	}
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		return strfmt.DateTime{}, errors.NewValidationError(name, fmt.Sprintf("invalid timestamp %q", s))
	}
	return dt, nil
}
