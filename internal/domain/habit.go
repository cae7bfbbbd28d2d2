package domain

import (
	"strings"
	"time"
)

// DefaultHabitIcon is used when a habit is created without an icon.
const DefaultHabitIcon = "circle"

// Habit is a behaviour the user wants to break.
type Habit struct {
	ID        string
	UserID    string
	Name      string
	Icon      string
	CreatedAt time.Time
}

// NewHabit creates a habit owned by userID.
func NewHabit(userID, name, icon string) (*Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyHabitName
	}
	if icon == "" {
		icon = DefaultHabitIcon
	}
	return &Habit{
		ID:        generateID(),
		UserID:    userID,
		Name:      name,
		Icon:      icon,
		CreatedAt: time.Now(),
	}, nil
}
