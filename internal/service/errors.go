package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fjod/go_cart/storefront-service/internal/repository"
)

var (
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("not enough stock for the requested quantity")
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("item does not belong to an active cart of this user")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidContact    = errors.New("invalid contact details")
)

// ContactError lists the checkout fields that failed validation, keyed by JSON name.
type ContactError struct {
	Fields map[string]string
}

func (e *ContactError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrInvalidContact, strings.Join(names, ", "))
}

func (e *ContactError) Is(target error) bool {
	return target == ErrInvalidContact
}

// mapRepositoryError turns storage sentinels into the errors callers act on.
// The original error stays in the chain.
func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrOrderNotActive):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case errors.Is(err, repository.ErrInsufficientStock):
		return fmt.Errorf("%w: %w", ErrInsufficientStock, err)
	default:
		return err
	}
}
