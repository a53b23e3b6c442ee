package domain

import "errors"

var (
	// ErrSearchInProgress is returned when a generator already runs a search.
	ErrSearchInProgress = errors.New("route generation already in progress")
	// ErrInvalidRequest wraps bad caller input (coordinates, target distance).
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrNoCandidate means every attempt failed before producing a route.
	ErrNoCandidate = errors.New("no route candidate found")

	// ErrProvider wraps transport or service failures of a directions provider.
	ErrProvider = errors.New("directions provider error")
	// ErrNoRoutes is returned when the provider answered with zero routes.
	ErrNoRoutes = errors.New("directions provider returned no routes")
	// ErrValidation marks a route rejected by the quality validator.
	ErrValidation = errors.New("route failed quality validation")

	ErrFavoriteExists   = errors.New("favorite with this name already exists")
	ErrFavoriteNotFound = errors.New("favorite not found")
)
