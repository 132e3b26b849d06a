package model

// BulkAction is an operation applied to many news items at once.
type BulkAction string

const (
	BulkActionDelete    BulkAction = "DELETE"
	BulkActionUnpublish BulkAction = "UNPUBLISH"
)

// IsValid reports whether a is a known action.
func (a BulkAction) IsValid() bool {
	return a == BulkActionDelete || a == BulkActionUnpublish
}

// BulkFilterType selects which news items a bulk action targets.
type BulkFilterType string

const (
	BulkFilterByIDs    BulkFilterType = "BY_IDS"
	BulkFilterByTerm   BulkFilterType = "BY_TERM"
	BulkFilterByAuthor BulkFilterType = "BY_AUTHOR"
	BulkFilterAll      BulkFilterType = "ALL"
)

// IsValid reports whether f is a known filter.
func (f BulkFilterType) IsValid() bool {
	switch f {
	case BulkFilterByIDs, BulkFilterByTerm, BulkFilterByAuthor, BulkFilterAll:
		return true
	}
	return false
}

// NewsSelector is the resolved target set of a bulk action.
type NewsSelector struct {
	Filter   BulkFilterType
	IDs      []string
	TermID   string
	AuthorID string
}
