package dyno_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dyno "github.com/tussik/dyno-go"
)

func TestNewQueryRejectsUnknownSchema(t *testing.T) {
	tbl := sampleTable(t)
	_, err := dyno.NewQuery(tbl, "ghost")
	require.Error(t, err)
}

func TestQuerySeedsLiteralPartitionValue(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)

	// "account#" has no placeholders, so the key condition is ready to go.
	assert.True(t, q.KeyFilter().HasPk())
	assert.True(t, q.IndexKeyFilter("gsi1").HasPk())

	input, err := q.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, "sample", *input.TableName)
	assert.Equal(t, "#n1 = :v1", *input.KeyConditionExpression)
	assert.Equal(t, "pk", input.ExpressionAttributeNames["#n1"])
	assert.Equal(t, "account#", input.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberS).Value)

	// The bound schema injects a discriminator filter.
	require.NotNil(t, input.FilterExpression)
	assert.Equal(t, "#n2 = :v2", *input.FilterExpression)
	assert.Equal(t, "schema", input.ExpressionAttributeNames["#n2"])
	assert.Equal(t, "account", input.ExpressionAttributeValues[":v2"].(*types.AttributeValueMemberS).Value)

	assert.Equal(t, types.SelectAllAttributes, input.Select)
	assert.True(t, *input.ScanIndexForward)
	assert.False(t, *input.ConsistentRead)
	assert.Equal(t, types.ReturnConsumedCapacityIndexes, input.ReturnConsumedCapacity)
	assert.Nil(t, input.IndexName)
}

func TestQueryRequiresKeyCondition(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "")
	require.NoError(t, err)

	_, err = q.BuildQuery()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key condition")

	q.KeyFilter().Pk("account#")
	_, err = q.BuildQuery()
	require.NoError(t, err)
}

func TestQueryUserFilterWrapsDiscriminator(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)
	q.Filter().Compare("active", dyno.OpEq, true)

	input, err := q.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, "( #n2 = :v2 ) AND ( #n3 = :v3 )", *input.FilterExpression)
	assert.Equal(t, "active", input.ExpressionAttributeNames["#n3"])
}

func TestQueryOnIndex(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)

	require.Error(t, q.UseIndex("nope"))
	require.NoError(t, q.UseIndex("gsi1"))

	q.IndexKeyFilter("gsi1").SortBeginsWith("alias#fr")
	q.ConsistentRead(true) // ignored off the primary index

	input, err := q.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, "gsi1", *input.IndexName)
	assert.Equal(t, "#n1 = :v1 AND begins_with(#n2, :v2)", *input.KeyConditionExpression)
	assert.Equal(t, "gsi1_pk", input.ExpressionAttributeNames["#n1"])
	assert.Equal(t, "gsi1_sk", input.ExpressionAttributeNames["#n2"])
	assert.Equal(t, types.SelectAllProjectedAttributes, input.Select)
	assert.False(t, *input.ConsistentRead)
}

func TestQuerySelectModes(t *testing.T) {
	tbl := sampleTable(t)

	// ALL_PROJECTED is meaningless on the primary index and downgrades.
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)
	q.Select(dyno.SelectProjected)
	input, err := q.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, types.SelectAllAttributes, input.Select)

	q, err = dyno.NewQuery(tbl, "account")
	require.NoError(t, err)
	q.Select(dyno.SelectCount)
	input, err = q.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, types.SelectCount, input.Select)
	assert.Nil(t, input.ProjectionExpression)
}

func TestQueryAttributesImplySpecific(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)
	q.Attributes("alias", "address.city")

	input, err := q.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, types.SelectSpecificAttributes, input.Select)
	require.NotNil(t, input.ProjectionExpression)
	assert.Equal(t, "#n3, #n4.#n5", *input.ProjectionExpression)
	assert.Equal(t, "alias", input.ExpressionAttributeNames["#n3"])
	assert.Equal(t, "address", input.ExpressionAttributeNames["#n4"])
	assert.Equal(t, "city", input.ExpressionAttributeNames["#n5"])
}

func TestQueryDescendingAndLimit(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)
	q.Descending().Limit(25)

	input, err := q.BuildQuery()
	require.NoError(t, err)
	assert.False(t, *input.ScanIndexForward)
	assert.Equal(t, int32(25), *input.Limit)
}

func TestQueryStartKeyTagging(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "account")
	require.NoError(t, err)
	q.StartKey(dyno.Item{
		"pk":  "account#",
		"sk":  "accountid#abc",
		"age": 30,
	})

	input, err := q.BuildQuery()
	require.NoError(t, err)
	cursor := input.ExclusiveStartKey
	require.NotNil(t, cursor)
	assert.Equal(t, "account#", cursor["pk"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "accountid#abc", cursor["sk"].(*types.AttributeValueMemberS).Value)
	// Non-key cursor attributes fall back to native tagging.
	assert.Equal(t, "30", cursor["age"].(*types.AttributeValueMemberN).Value)
}

func TestBuildScan(t *testing.T) {
	tbl := sampleTable(t)
	q, err := dyno.NewQuery(tbl, "user")
	require.NoError(t, err)
	q.Filter().Compare("age", dyno.OpGe, 21)
	q.ConsistentRead(true)

	input, err := q.BuildScan()
	require.NoError(t, err)
	assert.Equal(t, "sample", *input.TableName)
	assert.Equal(t, "( #n1 = :v1 ) AND ( #n2 >= :v2 )", *input.FilterExpression)
	assert.Equal(t, "schema", input.ExpressionAttributeNames["#n1"])
	assert.Equal(t, "user", input.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberS).Value)
	// Scans never read consistently.
	assert.False(t, *input.ConsistentRead)
}
