package model

import "strings"

// Route selects which items a view shows.
type Route string

const (
	RouteAll       Route = ""
	RouteActive    Route = "active"
	RouteCompleted Route = "completed"
)

// Routes lists every route in display order.
var Routes = []Route{RouteAll, RouteActive, RouteCompleted}

// ParseRoute normalizes a location hash or path ("#/active", "/completed",
// "active") into a Route. Anything unknown shows all items.
func ParseRoute(raw string) Route {
	r := strings.TrimSpace(raw)
	r = strings.TrimPrefix(r, "#")
	r = strings.Trim(r, "/")
	switch Route(strings.ToLower(r)) {
	case RouteActive:
		return RouteActive
	case RouteCompleted:
		return RouteCompleted
	}
	return RouteAll
}

// Visible reports whether an item with the given status belongs in r.
func (r Route) Visible(completed bool) bool {
	switch r {
	case RouteActive:
		return !completed
	case RouteCompleted:
		return completed
	}
	return true
}

// Hash is the location hash form of r ("#/", "#/active").
func (r Route) Hash() string { return "#/" + string(r) }

// Path is the URL path form of r ("/", "/active").
func (r Route) Path() string { return "/" + string(r) }

// Label is the human name shown on filter buttons.
func (r Route) Label() string {
	switch r {
	case RouteActive:
		return "Active"
	case RouteCompleted:
		return "Completed"
	}
	return "All"
}
