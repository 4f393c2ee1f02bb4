package scanner

import (
	"database/sql"
	"fmt"

	"photocull/database"
)

// ExportAudit stores the rated records of result in db under a fresh run id
// and returns that id. The pipeline never reads the audit table back.
func ExportAudit(db *sql.DB, options Options, result *Result, aiMode bool) (string, error) {
	if db == nil || result == nil {
		return "", nil
	}

	runID := database.NewRunID()
	if err := database.StoreRun(db, runID, options.FolderPath, result.Records, aiMode); err != nil {
		return "", fmt.Errorf("audit export failed: %w", err)
	}
	return runID, nil
}
