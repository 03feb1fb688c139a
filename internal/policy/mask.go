package policy

// Mask is a set of field groups hidden from the requester.
type Mask uint8

const (
	MaskNone Mask = 0
	// MaskFees hides totalFee, pendingFee, discount and payment history.
	MaskFees Mask = 1 << 0
)

// Has reports whether every group in flag is masked.
func (m Mask) Has(flag Mask) bool {
	return flag != 0 && m&flag == flag
}

// Fields lists the JSON field names hidden by the mask.
func (m Mask) Fields() []string {
	fields := make([]string, 0, 4)
	if m.Has(MaskFees) {
		fields = append(fields, "total_fee", "pending_fee", "discount", "fee_payments")
	}
	return fields
}
