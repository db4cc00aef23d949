/* Copyright 2025 OliWorks Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package app provides the application operations
package app

import (
	"github.com/oliworks/oliworks/pkg/clock"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrEmptyDB is an error for missing database connection in the app configuration
	ErrEmptyDB = errors.New("No database connection was provided")
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")

	// ErrNotFound is an error for a nonexistent resource
	ErrNotFound = errors.New("not found")
	// ErrLoginInvalid is an error for invalid credentials
	ErrLoginInvalid = errors.New("invalid login")
	// ErrEmailRequired is an error for an empty email
	ErrEmailRequired = errors.New("email is required")
	// ErrPasswordTooShort is an error for a password that is too short
	ErrPasswordTooShort = errors.New("password should be longer than 8 characters")
	// ErrDuplicateEmail is an error for an email that is already registered
	ErrDuplicateEmail = errors.New("duplicate email")
)

// App is an application context
type App struct {
	DB                  *gorm.DB
	Clock               clock.Clock
	DisableRegistration bool
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.DB == nil {
		return ErrEmptyDB
	}
	if a.Clock == nil {
		return ErrEmptyClock
	}

	return nil
}
