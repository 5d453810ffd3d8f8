package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackManager_OrderAndShortCircuit(t *testing.T) {
	var order []string
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeTool, func(context.Context, *CallbackContext) error {
		order = append(order, "first")
		return errors.New("stop")
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeTool, func(context.Context, *CallbackContext) error {
		order = append(order, "second")
		return nil
	}))

	cc := &CallbackContext{}
	err := cm.ExecuteCallbacks(context.Background(), CallbackBeforeTool, cc)

	assert.EqualError(t, err, "stop")
	assert.Equal(t, []string{"first"}, order)
	assert.Equal(t, CallbackBeforeTool, cc.CallbackType)
	assert.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackAfterTool, &CallbackContext{}))
}

func TestCallbackManager_RecoversPanics(t *testing.T) {
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackOnHandoff, func(context.Context, *CallbackContext) error {
		panic("boom")
	}))

	err := cm.ExecuteCallbacks(context.Background(), CallbackOnHandoff, &CallbackContext{})
	assert.ErrorContains(t, err, "boom")
}

func TestCallbackManager_NilIsNoOp(t *testing.T) {
	var cm *CallbackManager
	assert.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackOnHandoff, &CallbackContext{}))
}

func TestStateValidationCallback(t *testing.T) {
	cb := NewStateValidationCallback(ProtectedKeysValidator("client_id"))

	assert.Equal(t, CallbackOnStateChange, cb.Type())
	assert.Error(t, cb.Execute(context.Background(), &CallbackContext{StateDelta: map[string]any{"client_id": "x"}}))
	assert.NoError(t, cb.Execute(context.Background(), &CallbackContext{StateDelta: map[string]any{"name": "x"}}))
	assert.NoError(t, cb.Execute(context.Background(), &CallbackContext{}))
}
