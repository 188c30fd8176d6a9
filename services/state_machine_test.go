package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndegwakip/huduma_hub/models"
)

func TestEdgeExists(t *testing.T) {
	legal := []struct {
		from, to models.BookingStatus
	}{
		{models.BookingPending, models.BookingConfirmed},
		{models.BookingConfirmed, models.BookingInProgress},
		{models.BookingInProgress, models.BookingCompleted},
		{models.BookingPending, models.BookingCancelled},
		{models.BookingConfirmed, models.BookingCancelled},
		{models.BookingCancelled, models.BookingRefunded},
	}
	for _, e := range legal {
		assert.True(t, edgeExists(e.from, e.to), "%s -> %s should be legal", e.from, e.to)
	}

	illegal := []struct {
		from, to models.BookingStatus
	}{
		{models.BookingPending, models.BookingInProgress},
		{models.BookingPending, models.BookingCompleted},
		{models.BookingConfirmed, models.BookingCompleted},
		{models.BookingInProgress, models.BookingCancelled},
		{models.BookingCompleted, models.BookingCancelled},
		{models.BookingCompleted, models.BookingRefunded},
		{models.BookingCancelled, models.BookingPending},
		{models.BookingRefunded, models.BookingPending},
		{models.BookingConfirmed, models.BookingPending},
		{models.BookingPending, models.BookingPending},
	}
	for _, e := range illegal {
		assert.False(t, edgeExists(e.from, e.to), "%s -> %s should not exist", e.from, e.to)
	}
}

func TestRoleAllowed(t *testing.T) {
	// Customers cancel their own bookings but never confirm them.
	assert.True(t, roleAllowed(models.BookingPending, models.BookingCancelled, RoleCustomer))
	assert.True(t, roleAllowed(models.BookingConfirmed, models.BookingCancelled, RoleCustomer))
	assert.False(t, roleAllowed(models.BookingPending, models.BookingConfirmed, RoleCustomer))

	// Only the gateway (and admin) confirm; only professionals (and admin)
	// work the job.
	assert.True(t, roleAllowed(models.BookingPending, models.BookingConfirmed, RoleGateway))
	assert.True(t, roleAllowed(models.BookingConfirmed, models.BookingInProgress, RoleProfessional))
	assert.True(t, roleAllowed(models.BookingInProgress, models.BookingCompleted, RoleProfessional))
	assert.False(t, roleAllowed(models.BookingConfirmed, models.BookingInProgress, RoleCustomer))
	assert.False(t, roleAllowed(models.BookingConfirmed, models.BookingInProgress, RoleGateway))

	// The expiry job only ever cancels pending bookings.
	assert.True(t, roleAllowed(models.BookingPending, models.BookingCancelled, RoleSystem))
	assert.False(t, roleAllowed(models.BookingConfirmed, models.BookingCancelled, RoleSystem))

	// Refunds are gateway/admin territory.
	assert.True(t, roleAllowed(models.BookingCancelled, models.BookingRefunded, RoleAdmin))
	assert.False(t, roleAllowed(models.BookingCancelled, models.BookingRefunded, RoleCustomer))
}

func TestAdminAllowedOnEveryEdge(t *testing.T) {
	for e := range legalEdges {
		assert.True(t, roleAllowed(e.From, e.To, RoleAdmin), "admin should drive %s -> %s", e.From, e.To)
	}
}

func TestRequiresAssignment(t *testing.T) {
	assert.True(t, requiresAssignment(models.BookingConfirmed))
	assert.False(t, requiresAssignment(models.BookingCancelled))
	assert.False(t, requiresAssignment(models.BookingRefunded))
}

func TestCancellable(t *testing.T) {
	assert.True(t, cancellable(models.BookingPending))
	assert.True(t, cancellable(models.BookingConfirmed))
	assert.False(t, cancellable(models.BookingInProgress))
	assert.False(t, cancellable(models.BookingCompleted))
	assert.False(t, cancellable(models.BookingCancelled))
	assert.False(t, cancellable(models.BookingRefunded))
}
