// Package value provides the sealed value model carried by form fields.
//
// Field values, entity attributes and command payloads are all expressed as
// value.Value. The set of implementations is closed: Null, String, Int,
// Float, Bool, Array and Object. Array is the shape marker for tabular
// (repeating) fields.
//
// This package imports nothing internal. Every other internal package may
// depend on it.
//
// Two serializations exist:
//   - Marshal / Object.MarshalJSON: plain JSON with sorted object keys, used
//     for display and wire payloads.
//   - MarshalCanonical: RFC 8785 style canonical JSON with NFC-normalized
//     strings, used for content-addressed command IDs and snapshot hashes.
package value
