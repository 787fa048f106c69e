//go:build integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuxchn/qloo/internal/config"
	"github.com/joshuxchn/qloo/internal/testdb"
)

func TestRunDemo_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	svc := newDemoServices(db, config.AuthConfig{BcryptCost: 4, DefaultLocation: "98075"}, nil)
	report, err := runDemo(context.Background(), svc)
	require.NoError(t, err)

	assert.Equal(t, "Weekly groceries", report.ListName)
	assert.Equal(t, int64(2), report.Revision)
	require.Len(t, report.Items, 3)
	assert.Equal(t, "Milk", report.Items[0].Name)
	assert.Equal(t, "Bread", report.Items[1].Name)
	assert.Equal(t, "Eggs", report.Items[2].Name)
	assert.Equal(t, "12.74", report.Total)
	assert.Contains(t, report.AfterDelete, "not found")
}
