package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionMatchesByCode(t *testing.T) {
	custom := AlreadyCheckedIn.WithMessage("already in")
	wrapped := fmt.Errorf("apply: %w", custom)

	assert.True(t, stderrors.Is(wrapped, AlreadyCheckedIn))
	assert.False(t, stderrors.Is(wrapped, AlreadyCheckedOut))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestStorageErrorHidesCause(t *testing.T) {
	cause := stderrors.New("pq: connection refused")
	err := Storage("create session", cause)

	require.True(t, stderrors.Is(err, StorageFailure))
	require.True(t, stderrors.Is(err, cause))

	def, ok := AsDefinition(err)
	require.True(t, ok)
	assert.Equal(t, StorageFailure.Message, def.Message)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOfUnknownErrorIsStorage(t *testing.T) {
	assert.Equal(t, KindStorage, KindOf(stderrors.New("boom")))
}
