package layout

import "context"

// HeaderRequest describes one column whose display header should be
// suggested.
type HeaderRequest struct {
	ResourceType  string
	AttributePath string
	CurrentHeader string
}

// OrderColumn describes one column of a resource type for order suggestion.
type OrderColumn struct {
	AttributePath string
	Header        string
	Required      string
	ParentLink    string
}

// SheetSuggestion groups a resource type with related types on one sheet.
type SheetSuggestion struct {
	GroupKey    string
	DisplayName string
}

// HeaderOracle suggests column headers. Missing keys mean "no suggestion".
type HeaderOracle interface {
	SuggestHeaders(ctx context.Context, rows []HeaderRequest) (map[Key]string, error)
}

// OrderOracle suggests a column order for each resource type.
type OrderOracle interface {
	SuggestOrders(ctx context.Context, columns map[string][]OrderColumn) (map[Key]int, error)
}

// SheetOracle suggests how resource types group into sheets.
type SheetOracle interface {
	SuggestSheets(ctx context.Context, resourceTypes []string) (map[string]SheetSuggestion, error)
}
