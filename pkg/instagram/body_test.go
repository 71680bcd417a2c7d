package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	body, err := DecodeBody([]byte(`{"data":{"id":42,"name":"nasa","end_cursor":"QVFE","edges":[1,2,3],"tray":{"a":1,"b":2},"flag":true,"gone":null}}`))
	require.NoError(t, err)

	data := body.Data()
	assert.False(t, data.Empty())
	assert.Equal(t, "42", data.String("id"))
	assert.Equal(t, "nasa", data.String("name"))
	assert.Equal(t, "QVFE", data.Cursor())
	assert.Equal(t, "", data.String("flag"))
	assert.Equal(t, "", data.String("gone"))
	assert.Equal(t, "", data.String("missing"))
	assert.Equal(t, 3, data.Len("edges"))
	assert.Equal(t, 2, data.Len("tray"))
	assert.Equal(t, 0, data.Len("name"))
	assert.Equal(t, 0, data.Len("missing"))
}

func TestDecodeBody_Invalid(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[1]`, `"text"`} {
		body, err := DecodeBody([]byte(raw))
		assert.Error(t, err, raw)
		assert.True(t, body.Empty(), raw)
	}

	body, err := DecodeBody([]byte(`null`))
	require.NoError(t, err)
	assert.True(t, body.Empty())
}

func TestBody_ObjectAndInto(t *testing.T) {
	body, err := DecodeBody([]byte(`{"data":null,"list":[{"username":"a"}],"scalar":5}`))
	require.NoError(t, err)

	assert.True(t, body.Data().Empty())
	assert.True(t, body.Object("scalar").Empty())
	assert.True(t, body.Object("missing").Empty())

	var users []UserNode
	require.True(t, body.Into("list", &users))
	assert.Equal(t, "a", users[0].Username)

	var s string
	assert.False(t, body.Into("scalar", &s))
	assert.False(t, body.Into("data", &s))
}

func TestBody_CursorAbsentWhenEmptyString(t *testing.T) {
	body, err := DecodeBody([]byte(`{"end_cursor":""}`))
	require.NoError(t, err)
	assert.Equal(t, "", body.Cursor())
}
