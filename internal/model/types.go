package model

import (
	"strconv"
	"strings"
	"time"
)

// Core domain types shared by the planner, the API and the stores.

// DepotIndex is the location index of the depot. The vehicle starts and ends there.
const DepotIndex = 0

type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Location is a candidate stop (or the depot) with the weight picked up there.
type Location struct {
	Name     string    `json:"name" validate:"required"`
	Demand   int       `json:"demand" validate:"gte=0"`
	Location *GeoPoint `json:"location,omitempty"`
}

// ParseGeoPoint parses a "lat,lng" string. ok is false for anything else, e.g. a street address.
func ParseGeoPoint(s string) (GeoPoint, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return GeoPoint{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return GeoPoint{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return GeoPoint{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: lat, Lng: lng}, true
}

// Matrix is a square travel-cost table. Row is the origin, column the destination.
type Matrix [][]int64

// Square reports whether m is an n x n table.
func (m Matrix) Square(n int) bool {
	if len(m) != n {
		return false
	}
	for _, row := range m {
		if len(row) != n {
			return false
		}
	}
	return true
}

// Problem is the fully assembled single-vehicle routing instance.
type Problem struct {
	Locations    []Location
	Matrix       Matrix
	Capacity     int
	Penalty      int64
	MaxRouteCost int64
	Metric       string
	// TimeLimit caps the solver run. Zero uses the solver default.
	TimeLimit time.Duration
}

// Transit is the travel cost between two locations.
func (p Problem) Transit(from, to int) int64 { return p.Matrix[from][to] }

// Demand is the load added when the vehicle departs a location.
func (p Problem) Demand(from int) int { return p.Locations[from].Demand }

// Assignment is the raw solver answer: visiting order and dropped stops, by location index.
type Assignment struct {
	Route   []int `json:"route"`
	Dropped []int `json:"dropped"`
}

type PlanStop struct {
	Index    int       `json:"index"`
	Name     string    `json:"name"`
	Demand   int       `json:"demand"`
	Load     int       `json:"load"`
	Location *GeoPoint `json:"location,omitempty"`
}

type Leg struct {
	Seq  int   `json:"seq"`
	From int   `json:"from"`
	To   int   `json:"to"`
	Cost int64 `json:"cost"`
}

type DroppedStop struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Demand int    `json:"demand"`
}

// Plan is an evaluated assignment ready for reporting.
type Plan struct {
	VehicleID   int           `json:"vehicleId"`
	Metric      string        `json:"metric"`
	Stops       []PlanStop    `json:"stops"`
	Legs        []Leg         `json:"legs"`
	RouteCost   int64         `json:"routeCost"`
	RouteLoad   int           `json:"routeLoad"`
	Capacity    int           `json:"capacity"`
	Dropped     []DroppedStop `json:"dropped"`
	PenaltyCost int64         `json:"penaltyCost"`
	Objective   int64         `json:"objective"`
	Polyline    string        `json:"polyline,omitempty"`
}

type PlanStatus string

const (
	PlanPending PlanStatus = "pending"
	PlanRunning PlanStatus = "running"
	PlanSolved  PlanStatus = "solved"
	PlanFailed  PlanStatus = "failed"
)

// PlanRecord is the persisted state of one planning run.
type PlanRecord struct {
	ID        string     `json:"id"`
	Status    PlanStatus `json:"status"`
	Source    string     `json:"source"`
	Locations int        `json:"locations"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Plan      *Plan      `json:"plan,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// PlanRequest asks for one planning run. Zero values fall back to configuration.
type PlanRequest struct {
	Locations    []Location `json:"locations,omitempty" validate:"omitempty,min=1,dive"`
	Matrix       Matrix     `json:"matrix,omitempty"`
	Capacity     *int       `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	Penalty      *int64     `json:"penalty,omitempty" validate:"omitempty,gte=0"`
	MaxRouteCost *int64     `json:"maxRouteCost,omitempty" validate:"omitempty,gt=0"`
	TimeLimitMs  int        `json:"timeLimitMs,omitempty" validate:"gte=0"`
}
