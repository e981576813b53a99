package domain

import (
	"fmt"
	"strings"
)

// ChecklistItem is one entry of an activity checklist.
type ChecklistItem struct {
	ID        string `json:"id" firestore:"id"`
	Text      string `json:"text" firestore:"text"`
	Completed bool   `json:"completed" firestore:"completed"`
}

// Checklist is an ordered list of items. It is always written back whole;
// the operations below return a new slice and never mutate the receiver.
type Checklist []ChecklistItem

// Add appends a new incomplete item with the given id.
func (c Checklist) Add(id, text string) (Checklist, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: checklist text is required", ErrValidation)
	}
	for _, it := range c {
		if it.ID == id {
			return nil, fmt.Errorf("%w: duplicate checklist id %q", ErrValidation, id)
		}
	}
	out := make(Checklist, 0, len(c)+1)
	out = append(out, c...)
	return append(out, ChecklistItem{ID: id, Text: text}), nil
}

// Toggle flips the completed flag of the item with the given id.
func (c Checklist) Toggle(id string) (Checklist, error) {
	return c.update(id, func(it *ChecklistItem) { it.Completed = !it.Completed })
}

// Edit replaces the text of the item with the given id.
func (c Checklist) Edit(id, text string) (Checklist, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: checklist text is required", ErrValidation)
	}
	return c.update(id, func(it *ChecklistItem) { it.Text = text })
}

// Remove drops the item with the given id.
func (c Checklist) Remove(id string) (Checklist, error) {
	out := make(Checklist, 0, len(c))
	for _, it := range c {
		if it.ID != id {
			out = append(out, it)
		}
	}
	if len(out) == len(c) {
		return nil, fmt.Errorf("checklist item %q: %w", id, ErrNotFound)
	}
	return out, nil
}

// Completed returns the number of completed items.
func (c Checklist) Completed() int {
	n := 0
	for _, it := range c {
		if it.Completed {
			n++
		}
	}
	return n
}

func (c Checklist) update(id string, fn func(*ChecklistItem)) (Checklist, error) {
	out := make(Checklist, len(c))
	copy(out, c)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
			return out, nil
		}
	}
	return nil, fmt.Errorf("checklist item %q: %w", id, ErrNotFound)
}
