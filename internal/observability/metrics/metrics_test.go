package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSOAPCall_EtiquetaPorResultado(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(soapRequests.WithLabelValues("status", resultError))
	ObserveSOAPCall("status", errors.New("timeout"), 50*time.Millisecond)
	ObserveSOAPCall("status", nil, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(soapRequests.WithLabelValues("status", resultError)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(soapRequests.WithLabelValues("status", resultSuccess)), 1.0)
}

func TestObserveEmission_EstadoVacio(t *testing.T) {
	Init()
	before := testutil.ToFloat64(emissionTotal.WithLabelValues("unknown"))
	ObserveEmission("", time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(emissionTotal.WithLabelValues("unknown")))
}

func TestIncValidationFailure(t *testing.T) {
	Init()
	before := testutil.ToFloat64(validationFailures)
	IncValidationFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(validationFailures))
	ObservePollAttempts(0)
	ObservePollAttempts(4)
}
