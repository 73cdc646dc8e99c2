package invoice

import (
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// Action is an operation guarded by the invoice access policy
type Action string

const (
	ActionView         Action = "view"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionUpdateStatus Action = "update_status"
	ActionDownloadPDF  Action = "download_pdf"
	ActionRegenPDF     Action = "regenerate_pdf"
)

// CanCreate reports whether the actor may issue invoices
func CanCreate(actor identity.Actor) bool {
	return !actor.IsGuest()
}

// Can reports whether the actor may perform action on inv: admins may act on
// any invoice, everyone else only on invoices they issued.
func Can(actor identity.Actor, _ Action, inv *Invoice) bool {
	if actor.IsGuest() || inv == nil {
		return false
	}
	return actor.IsAdmin() || actor.Owns(inv.UserID)
}

// Authorize returns a Forbidden error when the actor may not perform action
func Authorize(actor identity.Actor, action Action, inv *Invoice) error {
	if Can(actor, action, inv) {
		return nil
	}
	return shared.NewForbiddenError("You are not allowed to " + actionVerb(action) + " this invoice")
}

// AuthorizeCreate returns a Forbidden error for guests
func AuthorizeCreate(actor identity.Actor) error {
	if CanCreate(actor) {
		return nil
	}
	return shared.NewForbiddenError("You are not allowed to create invoices")
}

// ScopeFilter restricts a listing to the actor's own invoices unless the
// actor is an admin.
func ScopeFilter(actor identity.Actor, f Filter) (Filter, error) {
	if actor.IsGuest() {
		return f, shared.NewForbiddenError("You are not allowed to list invoices")
	}
	if !actor.IsAdmin() {
		id := actor.UserID
		f.UserID = &id
	}
	return f, nil
}

func actionVerb(a Action) string {
	switch a {
	case ActionUpdateStatus:
		return "change the status of"
	case ActionDownloadPDF:
		return "download the document of"
	case ActionRegenPDF:
		return "regenerate the document of"
	default:
		return string(a)
	}
}
