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

// Package consts provides definitions of constants
package consts

var (
	// OliworksDirName is the name of the directory containing oliworks files
	OliworksDirName = "oliworks"
	// OliworksDBFileName is a filename for the OliWorks SQLite database
	OliworksDBFileName = "oliworks.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "oliworksrc"

	// CollectionProjects is the collection key for projects
	CollectionProjects = "projects"
	// CollectionTracks is the collection key for tracks
	CollectionTracks = "tracks"
	// CollectionAgenda is the collection key for agenda entries
	CollectionAgenda = "agenda"
	// CollectionPendings is the collection key for pending tasks
	CollectionPendings = "pendings"
	// CollectionArtists is the collection key for artist profiles
	CollectionArtists = "artist_profiles"
	// CollectionWallet is the collection key for wallet movements
	CollectionWallet = "wallet_movements"

	// SystemSchema is the key for schema in the system table
	SystemSchema = "schema"
	// SystemSessionKey is the session key
	SystemSessionKey = "session_token"
	// SystemSessionKeyExpiry is the timestamp at which the session key will expire
	SystemSessionKeyExpiry = "session_token_expiry"
	// SystemUserID is the id of the authenticated user
	SystemUserID = "user_id"

	// SystemLastPullProjects is the pull watermark for projects
	SystemLastPullProjects = "last_pull_projects"
	// SystemLastPullTracks is the pull watermark for tracks
	SystemLastPullTracks = "last_pull_tracks"
	// SystemLastPullAgenda is the pull watermark for agenda entries
	SystemLastPullAgenda = "last_pull_agenda"
	// SystemLastPullPendings is the pull watermark for pending tasks
	SystemLastPullPendings = "last_pull_pendings"
	// SystemLastPullArtists is the pull watermark for artist profiles
	SystemLastPullArtists = "last_pull_artist_profiles"
	// SystemLastPullWallet is the pull watermark for wallet movements
	SystemLastPullWallet = "last_pull_wallet_movements"
)

// WatermarkKeys maps collection keys to their pull watermark system keys.
var WatermarkKeys = map[string]string{
	CollectionProjects: SystemLastPullProjects,
	CollectionTracks:   SystemLastPullTracks,
	CollectionAgenda:   SystemLastPullAgenda,
	CollectionPendings: SystemLastPullPendings,
	CollectionArtists:  SystemLastPullArtists,
	CollectionWallet:   SystemLastPullWallet,
}
