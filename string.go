package mulvm

// Strings are TagString objects whose payload is the raw bytes plus a
// terminating zero (spec §6 "Strings include their terminating zero"),
// matching mudlle's C-string-compatible representation
// (original_source/runtime/string.c).

// NewString allocates a string object from raw bytes.
func NewString(h *Heap, s string, gc func() error) (Value, error) {
	v, err := h.Alloc(TagString, len(s)+1, gc)
	if err != nil {
		return Null, err
	}
	b := h.Bytes(v)
	copy(b, s)
	b[len(s)] = 0
	return v, nil
}

// GoString reads a string object's bytes back as a Go string, stopping at
// the terminating zero.
func GoString(h *Heap, v Value) string {
	b := h.Bytes(v)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// StringEqual compares two string objects by bytes, not identity (spec §8
// invariant "Two strings with the same bytes compare equal under equal?").
func StringEqual(h *Heap, a, b Value) bool {
	return GoString(h, a) == GoString(h, b)
}
