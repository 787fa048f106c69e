// Package testdb provides utilities for database integration tests.
//
// Each test runs in its own transaction, which is rolled back when the test
// completes, so tests can run in parallel against one database without
// cleaning up after themselves.
//
//	func TestMyFeature(t *testing.T) {
//	    t.Parallel()
//
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        userStore := postgres.NewPostgresUserStore(tx, nil)
//	        // ...
//	    })
//	}
//
// GetTestDBWithT skips the test when no database URL is configured, so
// integration tests are safe to run in environments without PostgreSQL.
//
// Code that opens its own transactions (for example a store given a *sql.DB)
// cannot be isolated this way; such tests should use unique IDs and clean up
// the rows they create.
package testdb
