package model

type Service struct {
	ID              string
	Title           string
	Price           float64
	DurationMinutes int
	Category        string
	Description     string
}

// Catalog indexes services by id for the duration of one computation.
type Catalog map[string]Service

func NewCatalog(services []Service) Catalog {
	c := make(Catalog, len(services))
	for _, s := range services {
		c[s.ID] = s
	}
	return c
}

func (c Catalog) Duration(serviceID string) (int, bool) {
	s, ok := c[serviceID]
	if !ok || s.DurationMinutes <= 0 {
		return 0, false
	}
	return s.DurationMinutes, true
}

// CartItem is one entry of a client's booking session. MasterID is empty when
// the client did not pick a master explicitly.
type CartItem struct {
	Service  Service
	MasterID string
}

func TotalDuration(items []CartItem) int {
	total := 0
	for _, it := range items {
		total += it.Service.DurationMinutes
	}
	return total
}
