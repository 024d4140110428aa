package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	withDetails := ErrGatewayRejected.WithDetails("Invalid email")

	assert.Nil(t, ErrGatewayRejected.Details)
	assert.Equal(t, "Invalid email", withDetails.Details)
	assert.True(t, errors.Is(withDetails, ErrGatewayRejected))
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := fmt.Errorf("verify: %w", ErrGatewayUnavailable.Wrap(cause))

	assert.True(t, errors.Is(err, ErrGatewayUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrGatewayRejected))
}

func TestFrom(t *testing.T) {
	appErr := From(ErrPaymentNotFound)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPCode)

	unknown := From(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPCode)
	assert.Equal(t, CodeInternalError, unknown.Code)
}

func TestMarshalJSONHidesCause(t *testing.T) {
	err := ErrGatewayUnavailable.Wrap(errors.New("Authorization: Bearer sk_live_secret"))

	body, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	assert.NotContains(t, string(body), "sk_live_secret")
	assert.Contains(t, string(body), string(CodeGatewayUnavailable))
}
