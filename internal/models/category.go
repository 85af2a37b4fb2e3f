package models

// CategoryColor is the display color assigned to a category header.
type CategoryColor struct {
	Background string `json:"bg"`
	Text       string `json:"text"`
}

// CategoryInfo is one entry in the derived category listing. Categories are
// not stored; they are computed from card categories and feedback keys.
type CategoryInfo struct {
	Name  string        `json:"name"`
	Color CategoryColor `json:"color"`
}
