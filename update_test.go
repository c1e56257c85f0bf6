package dyno_test

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dyno "github.com/tussik/dyno-go"
)

func TestUpdateSet(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)

	u.Set(dyno.Item{"age": 30}).
		Set(dyno.Item{"email": "fred@example.com"})
	require.NoError(t, u.Err())
	assert.True(t, u.Ok())
	assert.Equal(t, "SET #n1 = :v1, #n2 = :v2", u.Expression())
}

func TestUpdateSkipsUnknownAndReadonly(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "account")
	require.NoError(t, err)

	u.Set(dyno.Item{"color": "red"}).    // not a declared attribute
		Set(dyno.Item{"created": 12345}) // readonly
	require.NoError(t, u.Err())
	assert.False(t, u.Ok())
	assert.Equal(t, "", u.Expression())
}

func TestUpdateNestedMapFlattens(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "account")
	require.NoError(t, err)

	u.Set(dyno.Item{"address": map[string]any{
		"city":  "Berlin",
		"bogus": "dropped",
	}})
	require.NoError(t, u.Err())
	assert.Equal(t, "SET #n1.#n2 = :v1", u.Expression())
}

func TestUpdateAddNumeric(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)

	u.Add(dyno.Item{"age": 5})
	assert.Equal(t, "SET #n1 = #n1 + :v1", u.Expression())

	u.Add(dyno.Item{"age": -2.5})
	assert.Equal(t, "SET #n1 = #n1 + :v1, #n1 = #n1 - :v2", u.Expression())
}

func TestUpdateAddSetMembers(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)

	// Non-numeric ADD appends to the stored set.
	u.Add(dyno.Item{"tags": []string{"alpha"}})
	assert.Equal(t, "ADD #n1 :v1", u.Expression())
}

func TestUpdateRemoveAndDelete(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "account")
	require.NoError(t, err)

	u.Remove("alias", "created", "color")
	assert.Equal(t, "REMOVE #n1", u.Expression())

	u2, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)
	u2.Delete(dyno.Item{"tags": []string{"alpha"}})
	assert.Equal(t, "DELETE #n1 :v1", u2.Expression())
}

func TestUpdateAutoIncrement(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)

	u.AutoIncrement("sequence", 5)
	assert.Equal(t, "SET #n1 = if_not_exists(#n1, :v1) + :v2", u.Expression())
}

func TestUpdateBuildRequiresKey(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)

	u.Set(dyno.Item{"age": 30})
	_, err = u.Build()
	require.Error(t, err)
	var argErr *dyno.ArgError
	assert.ErrorAs(t, err, &argErr)

	// An incomplete bag cannot derive the sort key either.
	u.ApplyKey(dyno.Item{"accountid": "a1"})
	_, err = u.Build()
	require.Error(t, err)
}

func TestUpdateBuild(t *testing.T) {
	tbl := sampleTable(t)
	data := dyno.Item{"accountid": "a1", "userid": "u1", "age": 30}

	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)
	u.ApplyKey(data).Set(data)

	input, err := u.Build()
	require.NoError(t, err)
	assert.Equal(t, "sample", *input.TableName)
	assert.Equal(t, "account#user#", strAttr(t, input.Key, "pk"))
	assert.Equal(t, "accountid#a1#user#u1", strAttr(t, input.Key, "sk"))
	assert.Equal(t, types.ReturnValueAllNew, input.ReturnValues)
	assert.True(t, strings.HasPrefix(*input.UpdateExpression, "SET "))
	// Everything in the bag was applied, so no fallback clauses are needed
	// and each value alias maps to a supplied value.
	assert.Len(t, input.ExpressionAttributeValues, 3)
	assert.Len(t, input.ExpressionAttributeNames, 3)
}

func TestUpdateBuildFillsAlwaysAttributes(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)
	u.ApplyKeyTagged(map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "account#user#"},
		"sk": &types.AttributeValueMemberS{Value: "accountid#a1#user#u1"},
	})
	u.Set(dyno.Item{"email": "fred@example.com"})

	input, err := u.Build()
	require.NoError(t, err)
	names := input.ExpressionAttributeNames
	var have []string
	for _, name := range names {
		have = append(have, name)
	}
	// Untouched always-write attributes get fallback SETs.
	assert.Contains(t, have, "accountid")
	assert.Contains(t, have, "userid")
	assert.Contains(t, have, "age")
	assert.NotContains(t, have, "tags")
}

func TestUpdateBuildWithoutClauses(t *testing.T) {
	note := dyno.NewSchema("note",
		dyno.NewKeyFormat("note#", "note#{noteid}", "noteid")).
		Attr("noteid", &dyno.UUIDAttr{Optional: true}).
		Attr("body", &dyno.StringAttr{Optional: true})
	tbl, err := dyno.NewTable(dyno.TableParams{
		Name:    "notes",
		Key:     dyno.NewKey("pk", "sk"),
		Schemas: []*dyno.Schema{note},
	})
	require.NoError(t, err)

	u, err := dyno.NewUpdate(tbl, "note")
	require.NoError(t, err)
	u.ApplyKey(dyno.Item{"noteid": "n1"})

	_, err = u.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clauses")
}

func TestUpdateLatchesEncodeError(t *testing.T) {
	tbl := sampleTable(t)
	u, err := dyno.NewUpdate(tbl, "user")
	require.NoError(t, err)

	u.Set(dyno.Item{"flag": "Diagonal"}) // not in the flag options
	require.Error(t, u.Err())

	u.ApplyKey(dyno.Item{"accountid": "a1", "userid": "u1"})
	_, err = u.Build()
	require.Error(t, err)
}
