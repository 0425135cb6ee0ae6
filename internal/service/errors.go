// internal/service/errors.go
package service

import (
	"errors"
	"time"
)

// Sentinel errors; callers use errors.Is() instead of string matching.
var (
	ErrDemoNotFound       = errors.New("demonstration not found")
	ErrFolderExists       = errors.New("folder name already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrInvalidToken       = errors.New("could not validate credentials")
)

const queryTimeout = 5 * time.Second
