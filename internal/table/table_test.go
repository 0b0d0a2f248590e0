package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_StripsByteOrderMark(t *testing.T) {
	tbl, err := Read(strings.NewReader("\ufeffurl,listing_id\nhttps://a/1,1\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"url", "listing_id"}, tbl.Header)
	assert.Equal(t, 0, tbl.Column("url"))
	assert.Equal(t, [][]string{{"https://a/1", "1"}}, tbl.Rows)
}

func TestRead_Empty(t *testing.T) {
	tbl, err := Read(strings.NewReader(""))
	require.NoError(t, err)

	assert.True(t, tbl.Empty())
	assert.Nil(t, tbl.Header)
}

func TestRead_RaggedRows(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b,c\n1,2\n1,2,3,4\n"))
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "", tbl.Value(tbl.Rows[0], 2))
	assert.Equal(t, "3", tbl.Value(tbl.Rows[1], 2))
	assert.Equal(t, "", tbl.Value(tbl.Rows[1], -1))
}

func TestWrite_PadsShortRows(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Table{
		Header: []string{"a", "b", "c"},
		Rows:   [][]string{{"1"}, {"x, y", "2", "3"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "a,b,c\n1,,\n\"x, y\",2,3\n", buf.String())
}

func TestEncodeDecode(t *testing.T) {
	in := Table{
		Header: []string{"title", "price"},
		Rows:   [][]string{{"Toyota \"Corolla\"", "$10,000"}, {"Honda\nJazz", "N.A."}},
	}

	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, in, out)
}

func TestRecord(t *testing.T) {
	tbl := Table{Header: []string{"a", "b"}}

	assert.Equal(t, map[string]string{"a": "1", "b": ""}, tbl.Record([]string{" 1 "}))
	assert.Equal(t, -1, tbl.Column("missing"))
}
