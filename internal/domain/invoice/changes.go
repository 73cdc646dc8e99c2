package invoice

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Field names an invoice attribute tracked for change detection
type Field string

const (
	FieldNumber      Field = "invoice_number"
	FieldClient      Field = "client_id"
	FieldDescription Field = "description"
	FieldNotes       Field = "additional_notes"
	FieldIssueDate   Field = "issue_date"
	FieldDueDate     Field = "due_date"
	FieldTotal       Field = "total_amount"
	FieldStatus      Field = "status"
	FieldItems       Field = "items"
	FieldAttachment  Field = "attachment_path"
)

// RenderingFields are the fields whose change invalidates a generated PDF.
// Description is deliberately absent: a description-only edit keeps the
// current document.
var RenderingFields = []Field{
	FieldNumber,
	FieldClient,
	FieldNotes,
	FieldIssueDate,
	FieldDueDate,
	FieldTotal,
	FieldStatus,
	FieldItems,
}

// AffectsRendering reports whether any of fields is a rendering field
func AffectsRendering(fields []Field) bool {
	for _, f := range fields {
		if slices.Contains(RenderingFields, f) {
			return true
		}
	}
	return false
}

// Snapshot is a comparable image of the tracked invoice attributes
type Snapshot struct {
	Number      string `json:"invoice_number"`
	ClientID    string `json:"client_id"`
	Description string `json:"description"`
	Notes       string `json:"additional_notes"`
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
	Total       string `json:"total_amount"`
	Status      string `json:"status"`
	Items       string `json:"items"`
	Attachment  string `json:"attachment_path"`
}

// Snapshot captures the tracked attributes of the invoice
func (i *Invoice) Snapshot() Snapshot {
	s := Snapshot{
		Number:      i.InvoiceNumber,
		ClientID:    i.ClientID.String(),
		Description: i.Description,
		Notes:       i.AdditionalNotes,
		IssueDate:   i.IssueDate.UTC().Format(time.RFC3339Nano),
		DueDate:     i.DueDate.UTC().Format(time.RFC3339Nano),
		Total:       i.TotalAmount.StringFixed(2),
		Status:      string(i.Status),
		Items:       itemsFingerprint(i.Items),
	}
	if i.AttachmentPath != nil {
		s.Attachment = *i.AttachmentPath
	}
	return s
}

// Diff lists the fields that differ between two snapshots, in a stable order
func Diff(before, after Snapshot) []Field {
	var changed []Field
	check := func(f Field, a, b string) {
		if a != b {
			changed = append(changed, f)
		}
	}
	check(FieldNumber, before.Number, after.Number)
	check(FieldClient, before.ClientID, after.ClientID)
	check(FieldDescription, before.Description, after.Description)
	check(FieldNotes, before.Notes, after.Notes)
	check(FieldIssueDate, before.IssueDate, after.IssueDate)
	check(FieldDueDate, before.DueDate, after.DueDate)
	check(FieldTotal, before.Total, after.Total)
	check(FieldStatus, before.Status, after.Status)
	check(FieldItems, before.Items, after.Items)
	check(FieldAttachment, before.Attachment, after.Attachment)
	return changed
}

func itemsFingerprint(items []Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = strings.Join([]string{
			it.Name,
			strconv.Itoa(it.Quantity),
			it.UnitPrice.StringFixed(2),
			it.TaxRate.StringFixed(2),
		}, "|")
	}
	return strings.Join(parts, ";")
}
