// Package snapshot converts product snapshots between the three forms they
// take: the wire form supplied by the catalog and returned for display, the
// domain form, and the stored row form. All functions are pure.
//
// Every decoding failure is a *FieldError, which matches
// store.ErrSerialization under errors.Is.
package snapshot
