package domain

import (
	"fmt"
	"strings"
)

// Model-year bounds for catalog and query rows. Insurance catalogs keep
// classic vehicles, so the floor is well below current production years.
const (
	MinModelYear = 1950
	MaxModelYear = 2027
)

// ValidateQuery checks that a query row carries enough information to be
// matched: either free text or brand+model. Year, when present, must be in range.
func ValidateQuery(q VehicleQuery) error {
	hasText := strings.TrimSpace(q.Description) != ""
	hasPair := strings.TrimSpace(q.Brand) != "" && strings.TrimSpace(q.Model) != ""
	if !hasText && !hasPair {
		return NewValidationError("query", fmt.Sprintf("row %d", q.RowIndex), ErrEmptyQuery)
	}
	if q.Year != 0 && (q.Year < MinModelYear || q.Year > MaxModelYear) {
		return NewValidationError("year", fmt.Sprintf("%d", q.Year), ErrYearOutOfRange)
	}
	return nil
}

// ValidateCatalogEntry checks the fields a catalog row must carry before load.
func ValidateCatalogEntry(e CatalogEntry) error {
	if strings.TrimSpace(e.Code) == "" {
		return NewValidationError("code", e.Code, ErrEmptyQuery)
	}
	if strings.TrimSpace(e.CatalogVersion) == "" {
		return NewValidationError("catalog_version", e.CatalogVersion, ErrEmptyQuery)
	}
	if strings.TrimSpace(e.Brand) == "" || strings.TrimSpace(e.Model) == "" {
		return NewValidationError("brand/model", e.Brand+"/"+e.Model, ErrEmptyQuery)
	}
	if e.Year != 0 && (e.Year < MinModelYear || e.Year > MaxModelYear) {
		return NewValidationError("year", fmt.Sprintf("%d", e.Year), ErrYearOutOfRange)
	}
	return nil
}
