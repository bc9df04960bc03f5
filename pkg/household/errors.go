package household

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName         = errors.New("household name cannot be empty")
	ErrHouseholdNotFound = errors.New("household not found")
)

// DuplicateNameError is returned when a live household already holds the
// canonical name being registered.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a household with the name %q already exists", e.Name)
}

func IsDuplicateName(err error) bool {
	var dup *DuplicateNameError
	return errors.As(err, &dup)
}
