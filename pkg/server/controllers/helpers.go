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
	"encoding/json"
	"net/http"

	"github.com/oliworks/oliworks/pkg/server/app"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/log"
	"github.com/pkg/errors"
)

// parseRequestData decodes a json request body into the given destination
func parseRequestData(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errors.Wrap(err, "decoding request body")
	}

	return nil
}

// respondJSON writes the given payload as a json response
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}

func statusCodeForError(err error) int {
	switch errors.Cause(err) {
	case app.ErrLoginInvalid, app.ErrNotFound:
		return http.StatusUnauthorized
	case app.ErrEmailRequired, app.ErrPasswordTooShort, app.ErrDuplicateEmail:
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// handleJSONError logs the error and responds with a status code
// appropriate for the kind of failure
func handleJSONError(w http.ResponseWriter, err error, msg string) {
	statusCode := statusCodeForError(err)

	if statusCode == http.StatusInternalServerError {
		log.ErrorWrap(err, msg)
	}

	http.Error(w, errors.Cause(err).Error(), statusCode)
}

// SessionResponse is a response containing a session
type SessionResponse struct {
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"`
}

func respondWithSession(w http.ResponseWriter, statusCode int, session database.Session) {
	respondJSON(w, statusCode, SessionResponse{
		Key:       session.Key,
		ExpiresAt: session.ExpiresAt.Unix(),
	})
}
