package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardsABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(rewardsABI))
	require.NoError(t, err)

	students, ok := parsed.Methods["students"]
	require.True(t, ok)
	assert.Len(t, students.Outputs, 6)
	assert.Equal(t, "bool", students.Outputs[3].Type.String())
	assert.Equal(t, "bool", students.Outputs[4].Type.String())

	grade, ok := parsed.Methods["gradeSubmission"]
	require.True(t, ok)
	assert.Len(t, grade.Inputs, 2)
}

func TestSubmissionErrorWrapsCause(t *testing.T) {
	cause := errors.New("insufficient funds")
	err := &SubmissionError{Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broadcast failed")
	assert.Contains(t, err.Error(), "insufficient funds")
}
