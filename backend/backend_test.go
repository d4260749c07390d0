package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-yolodetect/cvdnn"
	"github.com/swdee/go-yolodetect/ortexec"
)

func TestNew(t *testing.T) {

	exec, err := New("", ortexec.Options{})
	require.NoError(t, err)
	assert.IsType(t, &cvdnn.Executor{}, exec)

	exec, err = New(" ONNXRuntime ", ortexec.Options{})
	require.NoError(t, err)
	assert.IsType(t, &ortexec.Executor{}, exec)

	_, err = New("tflite", ortexec.Options{})
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {

	newExec := Factory(ortexec.Options{IntraOpThreads: 2})

	exec, err := newExec("opencv")
	require.NoError(t, err)
	assert.IsType(t, &cvdnn.Executor{}, exec)

	_, err = newExec("bogus")
	assert.Error(t, err)
}
