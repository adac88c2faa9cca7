package ids_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskflow-go/taskflow/internal/ids"
)

func TestUUID4GeneratorProducesDistinctIDs(t *testing.T) {
	gen := ids.UUID4Generator{}
	a := gen.New()
	b := gen.New()
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
