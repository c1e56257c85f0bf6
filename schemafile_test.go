package dyno_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dyno "github.com/tussik/dyno-go"
)

const sampleTableYAML = `
name: sample
key:
  pk: pk
  sk: sk
indexes:
  gsi1: {}
  gsi2:
    pk: byalias
    sk: byalias_sort
schemas:
  - name: account
    key:
      pk: "account#"
      sk: "accountid#{accountid}"
      required: [accountid]
    indexes:
      gsi1:
        pk: "account#"
        sk: "alias#{alias}"
        required: [alias]
    attributes:
      - name: accountid
        type: uuid
      - name: active
        type: bool
        default: true
      - name: alias
        type: string
      - name: level
        type: intenum
        default: basic
        values:
          basic: 1
          pro: 2
      - name: address
        type: map
        optional: true
        members:
          - name: city
            type: string
            optional: true
          - name: zip
            type: string
            optional: true
      - name: created
        type: datetime
        readOnly: true
      - name: modified
        type: datetime
        current: true
    counters:
      revision:
        start: -5
        step: 0
`

func TestParseTable(t *testing.T) {
	tbl, err := dyno.ParseTable([]byte(sampleTableYAML))
	require.NoError(t, err)

	assert.Equal(t, "sample", tbl.Name())
	assert.Equal(t, "gsi1_pk", tbl.Index("gsi1").Pk)
	assert.Equal(t, "byalias", tbl.Index("gsi2").Pk)

	s := tbl.Schema("account")
	require.NotNil(t, s)

	assert.IsType(t, &dyno.UUIDAttr{}, s.Attribute("accountid"))
	assert.IsType(t, &dyno.DateTimeAttr{}, s.Attribute("modified"))

	b, ok := s.Attribute("active").(*dyno.BoolAttr)
	require.True(t, ok)
	require.NotNil(t, b.Default)
	assert.True(t, *b.Default)

	e, ok := s.Attribute("level").(*dyno.IntEnumAttr)
	require.True(t, ok)
	assert.Equal(t, "basic", e.Default)
	assert.Equal(t, int64(2), e.Values["pro"])

	m, ok := s.Attribute("address").(*dyno.MapAttr)
	require.True(t, ok)
	assert.True(t, m.Optional)
	assert.Contains(t, m.Attrs, "city")

	created, ok := s.Attribute("created").(*dyno.DateTimeAttr)
	require.True(t, ok)
	assert.True(t, created.IsReadOnly())

	// Counter bounds clamp: start to >= 0, step to >= 1.
	ai, ok := s.CounterDef("revision")
	require.True(t, ok)
	assert.Equal(t, int64(0), ai.Start)
	assert.Equal(t, int64(1), ai.Step)
}

func TestParseTableBehavesLikeCode(t *testing.T) {
	tbl, err := dyno.ParseTable([]byte(sampleTableYAML))
	require.NoError(t, err)

	item, err := tbl.WriteRecord("account", dyno.Item{
		"accountid": "a1",
		"alias":     "fred",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "account#", strAttr(t, item, "pk"))
	assert.Equal(t, "accountid#a1", strAttr(t, item, "sk"))
	assert.Equal(t, "alias#fred", strAttr(t, item, "gsi1_sk"))
}

func TestParseTableErrors(t *testing.T) {
	_, err := dyno.ParseTable([]byte("name: [broken"))
	require.Error(t, err)

	_, err = dyno.ParseTable([]byte(`
name: t
key: {pk: pk, sk: sk}
schemas:
  - name: x
    key: {pk: "x#", sk: "x#{id}"}
    attributes:
      - name: weird
        type: hologram
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown attribute type")
}

func TestLoadTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTableYAML), 0o644))

	tbl, err := dyno.LoadTableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sample", tbl.Name())

	_, err = dyno.LoadTableFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
