package domain

import "fmt"

// Category is a fixed quiz category. A nil ID means all categories combined.
type Category struct {
	ID          *int   `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

func categoryID(id int) *int { return &id }

// Categories is the catalog offered to players.
var Categories = []Category{
	{ID: nil, Name: "pubquiz", DisplayName: "PubQuiz"},
	{ID: categoryID(9), Name: "general", DisplayName: "General"},
	{ID: categoryID(18), Name: "computers", DisplayName: "Computers"},
	{ID: categoryID(20), Name: "mythology", DisplayName: "Mythology"},
	{ID: categoryID(23), Name: "history", DisplayName: "History"},
	{ID: categoryID(29), Name: "comics", DisplayName: "Comics"},
	{ID: categoryID(30), Name: "gadgets", DisplayName: "Gadgets"},
	{ID: categoryID(32), Name: "toons", DisplayName: "Toons"},
}

// LookupCategory finds a catalog entry by machine name.
func LookupCategory(name string) (Category, error) {
	for _, c := range Categories {
		if c.Name == name {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
}
