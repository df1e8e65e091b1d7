package models

// OrderArea is one preparation station (kitchen, bar, cafeteria...). The
// synthetic General entry is prepended by the directory, never returned by
// the catalog service.
type OrderArea struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GeneralOrderArea is the synthetic directory entry for unrouted items.
func GeneralOrderArea() OrderArea {
	return OrderArea{ID: 0, Name: GeneralArea}
}
