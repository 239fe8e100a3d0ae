package processing

// Field edit modes consumed by form-rendering collaborators.
const (
	FieldEditable = "editable"
	FieldReadOnly = "read_only"
)

// VisibleFields maps batch fields to their edit mode for the given closed
// state. Closing freezes everything; type is never editable after creation.
func VisibleFields(closed bool) map[string]string {
	if closed {
		return map[string]string{
			"name":            FieldReadOnly,
			"description":     FieldReadOnly,
			"type":            FieldReadOnly,
			"line_items":      FieldReadOnly,
			"quantity_change": FieldReadOnly,
			"custom_price":    FieldReadOnly,
		}
	}
	return map[string]string{
		"name":            FieldEditable,
		"description":     FieldEditable,
		"type":            FieldReadOnly,
		"line_items":      FieldEditable,
		"quantity_change": FieldEditable,
		"custom_price":    FieldEditable,
	}
}
