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

package controllers

import (
	"net/http"

	"github.com/oliworks/oliworks/pkg/server/app"
	"github.com/oliworks/oliworks/pkg/server/context"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/middleware"
	pkgErrors "github.com/pkg/errors"
)

// NewUsers creates a new Users controller
func NewUsers(app *app.App) *Users {
	return &Users{app: app}
}

// Users is a user controller
type Users struct {
	app *app.App
}

// LoginForm is the form data for log in
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (u *Users) login(form LoginForm) (database.Session, error) {
	if form.Email == "" || form.Password == "" {
		return database.Session{}, app.ErrLoginInvalid
	}

	user, err := u.app.Authenticate(form.Email, form.Password)
	if err != nil {
		// If the user is not found, treat it as invalid login
		if err == app.ErrNotFound {
			return database.Session{}, app.ErrLoginInvalid
		}

		return database.Session{}, err
	}

	session, err := u.app.CreateSession(user.ID)
	if err != nil {
		return database.Session{}, pkgErrors.Wrap(err, "creating session")
	}

	if err := u.app.TouchLastLoginAt(*user, u.app.DB); err != nil {
		return database.Session{}, pkgErrors.Wrap(err, "touching last login")
	}

	return session, nil
}

// Login handles login
func (u *Users) Login(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	session, err := u.login(form)
	if err != nil {
		handleJSONError(w, err, "logging in user")
		return
	}

	respondWithSession(w, http.StatusOK, session)
}

// Logout handles logout
func (u *Users) Logout(w http.ResponseWriter, r *http.Request) {
	key, err := middleware.GetCredential(r)
	if err != nil {
		handleJSONError(w, err, "getting credentials")
		return
	}

	if key != "" {
		if err := u.app.DeleteSession(key); err != nil {
			handleJSONError(w, err, "deleting session")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegistrationForm is the form data for registering
type RegistrationForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles register
func (u *Users) Register(w http.ResponseWriter, r *http.Request) {
	var form RegistrationForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	user, err := u.app.CreateUser(form.Email, form.Password)
	if err != nil {
		handleJSONError(w, err, "creating user")
		return
	}

	session, err := u.app.CreateSession(user.ID)
	if err != nil {
		handleJSONError(w, err, "creating session")
		return
	}

	respondWithSession(w, http.StatusCreated, session)
}

// MeResponse is the response for the me endpoint
type MeResponse struct {
	User struct {
		UUID  string `json:"uuid"`
		Email string `json:"email"`
	} `json:"user"`
}

// Me returns the current user
func (u *Users) Me(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var resp MeResponse
	resp.User.UUID = user.UUID
	resp.User.Email = user.Email

	respondJSON(w, http.StatusOK, resp)
}
