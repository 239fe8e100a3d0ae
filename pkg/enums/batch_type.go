package enums

import "fmt"

// BatchType distinguishes the two kinds of processing batches. The type is
// fixed for the whole batch; every line item's effect direction follows it.
type BatchType string

const (
	BatchTypeAdmission BatchType = "admission"
	BatchTypeRelease   BatchType = "release"
)

var validBatchTypes = []BatchType{
	BatchTypeAdmission,
	BatchTypeRelease,
}

// String implements fmt.Stringer.
func (t BatchType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known BatchType.
func (t BatchType) IsValid() bool {
	for _, candidate := range validBatchTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseBatchType converts raw input into a BatchType.
func ParseBatchType(value string) (BatchType, error) {
	for _, candidate := range validBatchTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch type %q", value)
}
