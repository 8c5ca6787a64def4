// database/load_log_store.go
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/nclcancer/survival/models"
)

// LogLoad appends rec to the load log table. It does nothing when no log
// table is configured.
func (s *Store) LogLoad(ctx context.Context, rec models.LoadRecord) error {
	if s.logTable == "" {
		return nil
	}
	name, err := s.QualifiedName(s.logTable)
	if err != nil {
		return fmt.Errorf("failed to log load of %s: %w", rec.FileName, err)
	}

	query := `INSERT INTO ` + name + ` (
			FILE_NAME, DATASET_KIND, DESTINATION, ROW_COUNT,
			DATE_SNAPSHOT, DATE_DIAGNOSIS_WINDOW, DATE_UPLOAD
		) VALUES (
			:FILE_NAME, :DATASET_KIND, :DESTINATION, :ROW_COUNT,
			:DATE_SNAPSHOT, :DATE_DIAGNOSIS_WINDOW, :DATE_UPLOAD
		)`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		s.logger.Warn("Database: failed to log load", "file", rec.FileName, "table", name, "err", err)
		return fmt.Errorf("failed to log load of %s: %w", rec.FileName, err)
	}

	s.logger.Debug("Database: logged load", "file", rec.FileName, "destination", rec.Destination, "rows", rec.RowCount)
	return nil
}

// LoadHistory returns the logged loads of fileName, oldest first.
func (s *Store) LoadHistory(ctx context.Context, fileName string) ([]models.LoadRecord, error) {
	if s.logTable == "" {
		return nil, nil
	}
	name, err := s.QualifiedName(s.logTable)
	if err != nil {
		return nil, err
	}

	var records []models.LoadRecord
	query := s.db.Rebind(historyQuery(name))
	if err := s.db.SelectContext(ctx, &records, query, fileName); err != nil {
		return nil, fmt.Errorf("failed to read load history for %s: %w", fileName, err)
	}
	return records, nil
}

var loadLogColumns = []string{
	"FILE_NAME", "DATASET_KIND", "DESTINATION", "ROW_COUNT",
	"DATE_SNAPSHOT", "DATE_DIAGNOSIS_WINDOW", "DATE_UPLOAD",
}

// historyQuery selects the load log of one file. Columns come back under
// quoted upper-case aliases; postgres folds unquoted names to lower case.
func historyQuery(table string) string {
	cols := make([]string, len(loadLogColumns))
	for i, c := range loadLogColumns {
		cols[i] = c + ` AS "` + c + `"`
	}
	return `SELECT ` + strings.Join(cols, ", ") + ` FROM ` + table + ` WHERE FILE_NAME = ? ORDER BY DATE_UPLOAD`
}
