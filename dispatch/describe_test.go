package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Declare(
		Func2("sum", sum).WithParamNames("a", "b"),
		Func1("norm", func(_ context.Context, p point) (float64, error) { return 0, nil }),
		Proc1("log", func(context.Context, string) error { return nil }).Annotate("notification"),
	))
	infos := b.Build().Describe()
	require.Len(t, infos, 3)

	assert.Equal(t, "log", infos[0].Name)
	assert.Equal(t, "notification", infos[0].Kind)
	require.Len(t, infos[0].Params, 1)
	assert.Equal(t, "string", infos[0].Params[0].Type)
	assert.Nil(t, infos[0].Result)

	assert.Equal(t, "norm", infos[1].Name)
	assert.Equal(t, "method", infos[1].Kind)
	require.Len(t, infos[1].Params, 1)
	assert.Equal(t, "object", infos[1].Params[0].Type)
	require.NotNil(t, infos[1].Params[0].Properties)
	_, ok := infos[1].Params[0].Properties.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "number", infos[1].Result.Type)

	assert.Equal(t, "sum", infos[2].Name)
	assert.Equal(t, []string{"a", "b"}, infos[2].ParamNames)
	assert.Equal(t, "integer", infos[2].Params[0].Type)
	assert.Equal(t, "integer", infos[2].Result.Type)

	data, err := json.Marshal(infos)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$schema")
}
