package model

// Item is the domain model for a todo entry.
// ID is assigned by the store; Title is never empty.
type Item struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Counts summarizes the list for footers and headers.
type Counts struct {
	Active int `json:"activeCount"`
	Total  int `json:"totalCount"`
}

// Completed is the number of completed items.
func (c Counts) Completed() int { return c.Total - c.Active }
