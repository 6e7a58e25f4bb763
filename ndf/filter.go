package ndf

// Filter transforms dataset payload bytes between their in-memory and
// on-disk forms.
//
// Both directions must preserve length and must map each element's bytes
// independently of its neighbours: the payload of a distributed dataset
// is written and read in rank-dependent pieces, and only an element-wise
// transform gives the same file regardless of how the payload was split.
type Filter interface {
	// Encode rewrites buf in place into its on-disk form. buf holds a
	// whole number of elements of the given size.
	Encode(buf []byte, elemSize int) error

	// Decode rewrites buf in place back into its in-memory form.
	Decode(buf []byte, elemSize int) error
}
