package services

import (
	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
)

// Role is the capability an actor exercises against the booking engine.
// Client tokens only ever carry customer/professional/admin; gateway and
// system are internal actors minted by the engine itself.
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
	RoleGateway      Role = "gateway"
	RoleSystem       Role = "system"
)

// Actor identifies who is driving an operation. There is no ambient
// current-user state anywhere in the engine; every operation takes one of
// these explicitly.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

var (
	// GatewayActor drives transitions triggered by verified payment
	// callbacks.
	GatewayActor = Actor{Role: RoleGateway}
	// SystemActor drives transitions triggered by scheduled jobs.
	SystemActor = Actor{Role: RoleSystem}
)

type edge struct {
	From models.BookingStatus
	To   models.BookingStatus
}

// legalEdges is the complete transition table: every legal (from, to) pair
// and the roles allowed to drive it. An edge absent from this map does not
// exist, whoever asks. Admin appears on every edge because the override
// surface reuses the same table.
var legalEdges = map[edge][]Role{
	{models.BookingPending, models.BookingConfirmed}:    {RoleGateway, RoleAdmin},
	{models.BookingConfirmed, models.BookingInProgress}: {RoleProfessional, RoleAdmin},
	{models.BookingInProgress, models.BookingCompleted}: {RoleProfessional, RoleAdmin},
	{models.BookingPending, models.BookingCancelled}:    {RoleCustomer, RoleAdmin, RoleSystem},
	{models.BookingConfirmed, models.BookingCancelled}:  {RoleCustomer, RoleAdmin},
	{models.BookingCancelled, models.BookingRefunded}:   {RoleGateway, RoleAdmin},
}

func edgeExists(from, to models.BookingStatus) bool {
	_, ok := legalEdges[edge{from, to}]
	return ok
}

func roleAllowed(from, to models.BookingStatus, role Role) bool {
	for _, r := range legalEdges[edge{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// requiresAssignment marks edges that may only fire once a professional is
// attached, keeping "confirmed but unassigned" unrepresentable.
func requiresAssignment(to models.BookingStatus) bool {
	return to == models.BookingConfirmed
}

// cancellable reports whether a booking in the given status may still be
// cancelled at all.
func cancellable(from models.BookingStatus) bool {
	return from == models.BookingPending || from == models.BookingConfirmed
}
