// Package store defines the repository interfaces for users and grocery
// lists, the error taxonomy shared by every implementation, and the
// transaction helpers that scope one logical operation to one connection.
// Implementations live in the platform packages.
package store
