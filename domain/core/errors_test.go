package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuralTaxonomy(t *testing.T) {
	for _, err := range []error{
		ErrMissingTable,
		ErrMissingColumn,
		ErrLocale,
		ErrNameCollision,
		ErrBadInput,
		ErrUnknownFormat,
		ErrNoScorableUnits,
	} {
		assert.True(t, IsStructural(err), err.Error())
	}
	assert.False(t, IsStructural(errors.New("metric had a bad day")))
	assert.False(t, IsStructural(nil))
}

func TestConstructorsKeepSentinelChain(t *testing.T) {
	err := NewMissingColumnError("evidence", "raw file")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), `"raw file"`)

	err = NewLocaleError("summary", "ms/ms identified [%]")
	assert.ErrorIs(t, err, ErrLocale)
	assert.Contains(t, err.Error(), "decimal separator")

	err = NewUnknownFormatError("pdf", []string{"html", "xlsx"})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	// a further wrap still resolves through the chain
	wrapped := fmt.Errorf("run aborted: %w", NewMissingTableError("summary", "/data/txt"))
	assert.True(t, IsStructural(wrapped))
	assert.ErrorIs(t, wrapped, ErrMissingTable)
}

func TestRunIDUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	require.NotEmpty(t, a.String())
	assert.NotEqual(t, a, b)
	assert.False(t, ID(a).IsEmpty())
}
