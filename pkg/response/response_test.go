package response

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"FieldForce/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: errors.InvalidLocation, want: http.StatusBadRequest},
		{err: errors.InvalidAttendanceType.WithMessage("bad"), want: http.StatusBadRequest},
		{err: errors.Unauthorized, want: http.StatusUnauthorized},
		{err: errors.EmployeeNotFound, want: http.StatusNotFound},
		{err: errors.AlreadyCheckedIn, want: http.StatusConflict},
		{err: fmt.Errorf("wrapped: %w", errors.NotCheckedIn), want: http.StatusConflict},
		{err: errors.TooManyRequests, want: http.StatusTooManyRequests},
		{err: errors.Storage("op", stderrors.New("boom")), want: http.StatusInternalServerError},
		{err: stderrors.New("unclassified"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}
