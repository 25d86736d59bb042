package booking

import "github.com/google/uuid"

// crockford is Crockford's base32 alphabet: no I, L, O or U, so references
// read back over the phone without ambiguity.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewReference returns a customer-facing booking code such as
// "BK-7K3QX9MD".  The eight symbols carry 40 random bits taken from a v4
// UUID.
func NewReference() string {
	u := uuid.New()
	var v uint64
	for _, b := range u[:5] {
		v = v<<8 | uint64(b)
	}
	out := []byte("BK-00000000")
	for i := len(out) - 1; i >= 3; i-- {
		out[i] = crockford[v&31]
		v >>= 5
	}
	return string(out)
}
