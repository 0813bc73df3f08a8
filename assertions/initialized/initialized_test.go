package initialized_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/assertions/initialized"
)

type guarded struct {
	witness initialized.IsInitialized
}

func TestWitness(t *testing.T) {
	made := guarded{witness: initialized.Make()}
	made.witness.Assert()
	assert.Assert(t, made.witness.Ok())

	var zero guarded
	assert.Assert(t, !zero.witness.Ok())
	defer func() {
		assert.Equal(t, recover(), "struct was not initialized")
	}()
	zero.witness.Assert()
}
