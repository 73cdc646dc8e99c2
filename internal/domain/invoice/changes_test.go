package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAffectsRendering(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		want   bool
	}{
		{"description only", []Field{FieldDescription}, false},
		{"attachment only", []Field{FieldAttachment}, false},
		{"nothing", nil, false},
		{"status", []Field{FieldStatus}, true},
		{"notes", []Field{FieldNotes}, true},
		{"client", []Field{FieldClient}, true},
		{"number", []Field{FieldNumber}, true},
		{"mixed", []Field{FieldDescription, FieldDueDate}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AffectsRendering(tt.fields))
		})
	}
}

func TestDiff(t *testing.T) {
	inv := createTestInvoice(t)
	before := inv.Snapshot()

	assert.Empty(t, Diff(before, before))

	inv.AdditionalNotes = "pay by wire"
	inv.Status = StatusPaid
	assert.Equal(t, []Field{FieldNotes, FieldStatus}, Diff(before, inv.Snapshot()))
}

func TestSnapshot_ItemsFingerprint(t *testing.T) {
	inv := createTestInvoice(t)
	before := inv.Snapshot()

	inv.Items[1].Quantity = 3
	assert.Equal(t, []Field{FieldItems}, Diff(before, inv.Snapshot()))
}
