package firefly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fjacquet/firefly-preimporter/internal/fileutils"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

const statusDescriptionLength = 20

// UploadSummary counts the outcome of an upload run.
type UploadSummary struct {
	Uploaded   int
	Duplicates int
	Tagged     int
	Groups     []UploadedGroup
}

// MergeTags appends tag to existing unless it is already present. Order is
// preserved, duplicates dropped and matching is case-sensitive.
func MergeTags(existing []string, tag string) []string {
	seen := make(map[string]bool, len(existing)+1)
	merged := make([]string, 0, len(existing)+1)
	for _, t := range append(append([]string(nil), existing...), tag) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}

// StatusLine describes a payload as `date "description"`, the description
// cut to 20 characters.
func StatusLine(payload Payload) string {
	if len(payload.Transactions) == 0 {
		return `? ""`
	}
	split := payload.Transactions[0]
	date := split.Date
	if date == "" {
		date = "?"
	}
	desc := []rune(split.Description)
	if len(desc) > statusDescriptionLength {
		desc = desc[:statusDescriptionLength]
	}
	return strings.TrimSpace(fmt.Sprintf(`%s "%s"`, date, string(desc)))
}

// UploadPayloads submits payloads one by one. A duplicate rejection is
// reported and skipped; any other failure stops the run and is returned.
// When batchTag is set and at least one payload was created, the tag is
// merged into every created journal.
func UploadPayloads(ctx context.Context, api API, payloads []Payload, emitter logging.Emitter, batchTag string) (*UploadSummary, error) {
	summary := &UploadSummary{}
	for _, payload := range payloads {
		status := StatusLine(payload)
		group, err := api.SubmitTransaction(ctx, payload)
		if err != nil {
			if parsererror.IsDuplicate(err) {
				summary.Duplicates++
				logging.Infof(emitter, "Duplicate skipped: %s", status)
				logging.Verbosef(emitter, "Firefly response: %s", duplicateBody(err))
				continue
			}
			logging.Errorf(emitter, "Firefly upload failed for %s: %v", status, err)
			return summary, err
		}
		summary.Uploaded++
		summary.Groups = append(summary.Groups, *group)
		logging.Infof(emitter, "Uploaded %s (group %d)", status, group.GroupID)
	}

	logging.Infof(emitter, "Firefly upload finished: %d uploaded, %d duplicates.", summary.Uploaded, summary.Duplicates)

	if batchTag == "" || len(summary.Groups) == 0 {
		return summary, nil
	}
	if err := ApplyBatchTag(ctx, api, summary, batchTag, emitter); err != nil {
		logging.Errorf(emitter, "Failed to apply tag %q: %v", batchTag, err)
		return summary, err
	}
	return summary, nil
}

// ApplyBatchTag makes sure tag exists, then merges it into the journals of
// every group in summary.
func ApplyBatchTag(ctx context.Context, api API, summary *UploadSummary, tag string, emitter logging.Emitter) error {
	if err := api.EnsureTag(ctx, tag); err != nil {
		return err
	}
	for _, group := range summary.Groups {
		if len(group.Journals) == 0 {
			continue
		}
		merged := make(map[string][]string, len(group.Journals))
		for id, tags := range group.Journals {
			merged[id] = MergeTags(tags, tag)
		}
		if err := api.UpdateJournalTags(ctx, group.GroupID, merged); err != nil {
			return err
		}
		summary.Tagged += len(merged)
	}
	logging.Verbosef(emitter, "Applied tag %q to %d transactions.", tag, summary.Tagged)
	return nil
}

func duplicateBody(err error) string {
	var upErr *parsererror.UploadError
	if errors.As(err, &upErr) {
		return parsererror.Snippet(upErr.Body, 500)
	}
	return err.Error()
}

// WritePayloads stores payloads as a pretty-printed JSON array.
func WritePayloads(payloads []Payload, path string, logger logging.Logger) error {
	if payloads == nil {
		payloads = []Payload{}
	}
	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode payloads: %w", err)
	}
	data = append(data, '\n')
	if err := fileutils.WriteFile(path, data, models.PermissionFile); err != nil {
		return fmt.Errorf("failed to write payloads to %s: %w", path, err)
	}
	if logger != nil {
		logger.Info("Wrote Firefly payloads",
			logging.F(logging.FieldOutputFile, path),
			logging.F(logging.FieldCount, len(payloads)))
	}
	return nil
}
