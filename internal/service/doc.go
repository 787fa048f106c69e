// Package service provides application-level operations on accounts and
// grocery lists, built on the repositories in the store package.
//
// Services own identifier generation, password hashing and the
// read-modify-replace cycle for list contents. They do not open transactions
// themselves: each repository call is atomic, and list edits are protected by
// the list revision, so a concurrent edit surfaces as store.ErrConflict and
// the caller may retry.
package service
