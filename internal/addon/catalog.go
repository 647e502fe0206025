// Package addon implements the read-only add-on catalog listing
// (SPEC_FULL.md §12), supplementing spec.md §1's explicitly out-of-scope
// "add-on catalog" collaborator with a thin read path the core does not
// depend on. Grounded on original_source's
// infrastructure/repositories/mysql_addon_catalog_repository.py
// (get_all_active, optional category filter, sort_order ordering) and
// domain/enums/addon_category.py, ported to a Go enum; implemented against
// Postgres following backend-booking's repository layering.
package addon

import "context"

// Category is one of the fixed add-on categories (original_source's
// AddonCategory StrEnum).
type Category string

const (
	CategoryCoverage    Category = "coverage"
	CategoryDriver      Category = "driver"
	CategoryEquipment   Category = "equipment"
	CategoryLogistics   Category = "logistics"
	CategoryConvenience Category = "convenience"
)

// Addon is one catalog entry.
type Addon struct {
	Code        string
	Name        string
	Category    Category
	Description string
	SortOrder   int
	IsActive    bool
}

// Catalog is the read-only add-on catalog contract.
type Catalog interface {
	// ListActive returns active add-ons ordered by sort_order, optionally
	// filtered by category (nil means no filter).
	ListActive(ctx context.Context, category *Category) ([]Addon, error)
}
