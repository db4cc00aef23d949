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
	mw "github.com/oliworks/oliworks/pkg/server/middleware"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
}

// NewAPIRoutes returns a new api routes
func NewAPIRoutes(a *app.App, c *Controllers) []Route {
	ret := []Route{
		{"GET", "/health", c.Health.Index, true},

		{"POST", "/v1/signin", c.Users.Login, true},
		{"POST", "/v1/signout", c.Users.Logout, true},
		{"GET", "/v1/me", mw.Auth(a.DB, c.Users.Me), true},

		{"GET", "/v1/sync/projects", mw.Auth(a.DB, c.Sync.GetProjects), false},
		{"POST", "/v1/sync/projects", mw.Auth(a.DB, c.Sync.SaveProjects), false},
		{"POST", "/v1/sync/projects/lookup", mw.Auth(a.DB, c.Sync.LookupProjects), false},

		{"GET", "/v1/sync/tracks", mw.Auth(a.DB, c.Sync.GetTracks), false},
		{"POST", "/v1/sync/tracks", mw.Auth(a.DB, c.Sync.SaveTracks), false},

		{"GET", "/v1/sync/events", mw.Auth(a.DB, c.Sync.GetEvents), false},
		{"POST", "/v1/sync/events", mw.Auth(a.DB, c.Sync.SaveEvents), false},

		{"GET", "/v1/sync/pendings", mw.Auth(a.DB, c.Sync.GetPendings), false},
		{"POST", "/v1/sync/pendings", mw.Auth(a.DB, c.Sync.SavePendings), false},

		{"GET", "/v1/sync/artist-profiles", mw.Auth(a.DB, c.Sync.GetArtistProfiles), false},
		{"POST", "/v1/sync/artist-profiles", mw.Auth(a.DB, c.Sync.SaveArtistProfiles), false},

		{"POST", "/v1/sync/artists", mw.Auth(a.DB, c.Sync.SaveArtists), false},
		{"POST", "/v1/sync/artists/lookup", mw.Auth(a.DB, c.Sync.LookupArtists), false},

		{"GET", "/v1/sync/wallet-movements", mw.Auth(a.DB, c.Sync.GetWalletMovements), false},
		{"POST", "/v1/sync/wallet-movements", mw.Auth(a.DB, c.Sync.SaveWalletMovements), false},
		{"POST", "/v1/sync/wallet-movements/delete", mw.Auth(a.DB, c.Sync.DeleteWalletMovements), false},
	}

	if !a.DisableRegistration {
		ret = append(ret, Route{"POST", "/v1/register", c.Users.Register, true})
	}

	return ret
}

func registerRoutes(router *mux.Router, routes []Route) {
	for _, route := range routes {
		router.
			Handle(route.Pattern, mw.ApplyLimit(route.Handler, route.RateLimit)).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, rc.APIRoutes)

	return router, nil
}
