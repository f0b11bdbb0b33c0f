package reconcile

import (
	"fmt"

	"github.com/vango-dev/vmsync/internal/errors"
)

// Reason names the precondition a skipped list operation failed.
type Reason string

const (
	ReasonListNotFound   Reason = "list_not_found"   // Target is missing or not a list
	ReasonMissingItemKey Reason = "missing_item_key" // No <list>_itemKey registered
	ReasonItemMissingKey Reason = "item_missing_key" // Item lacks the key field
	ReasonDuplicateKey   Reason = "duplicate_key"    // Add would duplicate a key
	ReasonInvalidItem    Reason = "invalid_item"     // Item is not an object
	ReasonInvalidItemKey Reason = "invalid_item_key" // _itemKey value is not a string
)

// Code returns the error code registered for the reason.
func (r Reason) Code() string {
	switch r {
	case ReasonListNotFound:
		return "E020"
	case ReasonMissingItemKey:
		return "E021"
	case ReasonItemMissingKey:
		return "E022"
	case ReasonDuplicateKey:
		return "E023"
	case ReasonInvalidItem:
		return "E024"
	case ReasonInvalidItemKey:
		return "E027"
	default:
		return ""
	}
}

// Diagnostic reports a list operation that was skipped.
type Diagnostic struct {
	Field  string
	List   string
	Kind   OpKind
	Reason Reason

	// Key is the registered item key field, when one was involved.
	Key string
}

// String returns a one-line description of the diagnostic.
func (d Diagnostic) String() string {
	switch d.Reason {
	case ReasonListNotFound:
		return fmt.Sprintf("'%s' is not found or not a list", d.List)
	case ReasonMissingItemKey:
		return fmt.Sprintf("missing item key for '%s'; add %s property to the view model", d.List, FieldName(d.List, OpItemKey))
	case ReasonItemMissingKey:
		return fmt.Sprintf("couldn't %s item in '%s' due to missing property '%s'", d.Kind, d.List, d.Key)
	case ReasonDuplicateKey:
		return fmt.Sprintf("couldn't add item to '%s' because the key already exists", d.List)
	case ReasonInvalidItem:
		return fmt.Sprintf("couldn't %s item in '%s' because it is not an object", d.Kind, d.List)
	case ReasonInvalidItemKey:
		return fmt.Sprintf("%s must name a property", d.Field)
	default:
		return string(d.Reason)
	}
}

// Err converts the diagnostic into a coded error for the given view model.
func (d Diagnostic) Err(vmID string) *errors.SyncError {
	return errors.New(d.Reason.Code()).WithVM(vmID).WithDetail(d.String())
}
