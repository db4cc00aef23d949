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

package sync

import (
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/infra"
	"github.com/oliworks/oliworks/pkg/cli/log"
	enginesync "github.com/oliworks/oliworks/pkg/cli/sync"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  oliworks sync`

var isFullSync bool
var apiEndpointFlag string

// NewCmd returns a new sync command
func NewCmd(ctx context.OliCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"s"},
		Short:   "Sync data with the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&isFullSync, "full", "f", false, "rebuild the project collection from the server instead of syncing incrementally.")
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

func newRun(ctx context.OliCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		if isFullSync {
			log.Info("rebuilding projects from the server\n")
			if err := enginesync.ForceResyncProjects(ctx); err != nil {
				if err == enginesync.ErrNotLoggedIn {
					log.Error("not logged in\n")
					return nil
				}
				return errors.Wrap(err, "resyncing projects")
			}
		}

		result, err := enginesync.SyncAll(ctx)
		if err == enginesync.ErrNotLoggedIn {
			log.Error("not logged in\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "syncing")
		}

		for collection, count := range result.Cleaned {
			log.Debug("purged %d tombstones from %s\n", count, collection)
		}

		if !result.Ok() {
			for collection, message := range result.Errors {
				log.Warnf("%s did not sync: %s\n", collection, message)
			}
			log.Info("finished with errors\n")
			return nil
		}

		log.Success("success\n")

		return nil
	}
}
