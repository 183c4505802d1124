/*
Copyright 2024 Cadence Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cadence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/model"
)

// maxSuggestionDistance is the largest edit distance still offered as a "did you mean" hint.
const maxSuggestionDistance = 3

func isNotFound(err error) bool {
	var apiErr apierror.APIError
	return errors.As(err, &apiErr) && apiErr.Code == apierror.ErrNotFound
}

// suggestStoreID returns the candidate closest to id, or "" when nothing is close enough.
// Typos in hand-entered store IDs are the usual cause of orphans.
func suggestStoreID(id string, candidates []string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, candidate := range candidates {
		distance := levenshtein.DistanceForStrings([]rune(strings.ToLower(id)), []rune(strings.ToLower(candidate)), levenshtein.DefaultOptions)
		if distance < bestDistance || (distance == bestDistance && candidate < best) {
			best, bestDistance = candidate, distance
		}
	}
	if bestDistance > maxSuggestionDistance {
		return ""
	}
	return best
}

func storeIDs(stores []model.Store) []string {
	ids := make([]string, 0, len(stores))
	for _, s := range stores {
		ids = append(ids, s.StoreID)
	}
	return ids
}

// annotateOrphans fills in suggestions and logs each orphan once per run.
func annotateOrphans(orphans []engine.OrphanRecord, candidates []string) []engine.OrphanRecord {
	for i := range orphans {
		orphans[i].Suggestion = suggestStoreID(orphans[i].StoreID, candidates)
		logrus.WithFields(logrus.Fields{
			"kind":       orphans[i].Kind,
			"record_id":  orphans[i].RecordID,
			"store_id":   orphans[i].StoreID,
			"suggestion": orphans[i].Suggestion,
		}).Warn("orphan record excluded")
	}
	return orphans
}

// requireStore checks that the store referenced by a record exists. A missing store is
// reported as an orphan, with a suggestion when one of the known IDs is close.
func (c *Cadence) requireStore(ctx context.Context, kind engine.RecordKind, recordID, storeID string) error {
	if storeID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "store_id is required", nil)
	}
	_, err := c.datasource.GetStoreByID(ctx, storeID)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	orphan := engine.OrphanRecord{Kind: kind, RecordID: recordID, StoreID: storeID}
	if ids, idErr := c.datasource.GetStoreIDs(ctx); idErr == nil {
		orphan = annotateOrphans([]engine.OrphanRecord{orphan}, ids)[0]
	}
	if recordID != "" {
		c.postWebhook(ctx, EventOrphanRecord, orphan)
	}
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("store %s not found", storeID), orphan)
}
