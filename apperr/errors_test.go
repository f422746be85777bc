package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindSurvivesWrapping(t *testing.T) {
	base := NotFound("catalog.LookupByBarcode", "7790001")
	wrapped := fmt.Errorf("lookup: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	var appErr *Error
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "7790001", appErr.ID)
}

func TestErrorMessage(t *testing.T) {
	err := Validation("catalog.Rebuild", "utiles::cuadernos::", "missing name")
	assert.Equal(t, "catalog.Rebuild [utiles::cuadernos::]: missing name", err.Error())

	ext := External("orders.Place", errors.New("connection refused"))
	assert.Equal(t, "orders.Place: connection refused", ext.Error())
	assert.True(t, IsExternal(ext))
	assert.True(t, errors.Is(ext, ErrExternalService))

	bare := New("discount.Save", ErrCapacity, "", nil)
	assert.Equal(t, "discount.Save: out of stock", bare.Error())
}
