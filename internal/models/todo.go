// Package models defines the domain types for auw.
package models

import "strconv"

// Todo is a single to-do entry. ID 0 means the id has not been assigned yet.
type Todo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsChecked   bool   `json:"isChecked,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

// Fields returns the record as template substitution values.
func (t Todo) Fields() map[string]string {
	return map[string]string{
		"id":          strconv.FormatInt(t.ID, 10),
		"title":       t.Title,
		"description": t.Description,
		"isChecked":   strconv.FormatBool(t.IsChecked),
		"priority":    strconv.Itoa(t.Priority),
	}
}
