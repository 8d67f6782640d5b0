package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"kioscopos/internal/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSaldo = apierror.BusinessRule("InsufficientBalance", "Saldo insuficiente")

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("retiro: %w", errSaldo.Withf("Saldo insuficiente. Disponible: $%s", "1000.00"))

	assert.ErrorIs(t, err, errSaldo)
	assert.NotErrorIs(t, err, apierror.Conflict("SessionAlreadyOpen", "x"))

	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindBusinessRule, e.Kind)
	assert.Equal(t, "Saldo insuficiente. Disponible: $1000.00", e.Message)
}

func TestFromError_StatusPerKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apierror.Validation("EmptyCart", "vacío"), http.StatusUnprocessableEntity},
		{apierror.Conflict("SessionAlreadyOpen", "abierta"), http.StatusConflict},
		{apierror.BusinessRule("InsufficientBalance", "saldo"), http.StatusUnprocessableEntity},
		{apierror.NotFound("SaleNotFound", "venta"), http.StatusNotFound},
	}
	for _, tc := range cases {
		status, body := apierror.FromError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.False(t, body.Success)
	}
}

func TestFromError_PersistenceHidesCause(t *testing.T) {
	status, body := apierror.FromError(apierror.Persistence("crear venta", errors.New("disk I/O error at page 42")))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apierror.KindPersistenceFailure, body.ErrorKind)
	assert.NotContains(t, body.Detail, "disk")

	status, _ = apierror.FromError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
