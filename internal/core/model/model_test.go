package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	in := []ExportRecord{
		{Name: "a", Kind: KindFunction, TypeSignature: "first"},
		{Name: "b", Kind: KindType},
		{Name: "a", Kind: KindConst, TypeSignature: "second"},
	}

	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"a", "b"}, Names(out))
	assert.Equal(t, "first", out[0].TypeSignature)
	assert.Len(t, in, 3, "input must not be modified")
}

func TestExportRecordJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(ExportRecord{Name: "add", Kind: KindFunction, TypeSignature: "() => void", Description: "d"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"add","kind":"function","typeSignature":"() => void","description":"d"}`, string(data))
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindFunction, KindClass, KindType, KindConst} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("interface").Valid())
}
