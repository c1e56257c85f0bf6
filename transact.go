/*
Package dyno – write transactions.

A Transact accumulates puts, updates, deletes and condition checks for one
atomic TransactWriteItems call.
*/
package dyno

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tussik/dyno-go/internal/uid"
)

// Transact builds one atomic write batch.
type Transact struct {
	items []types.TransactWriteItem
	err   error
}

// NewTransact returns an empty transaction.
func NewTransact() *Transact { return &Transact{} }

func (tr *Transact) fail(err error) *Transact {
	if tr.err == nil {
		tr.err = err
	}
	return tr
}

// Len reports the number of accumulated entries.
func (tr *Transact) Len() int { return len(tr.items) }

// Err surfaces the first failure recorded while building.
func (tr *Transact) Err() error { return tr.err }

// Put appends a schema-encoded record write.
func (tr *Transact) Put(t *Table, schemaName string, data Item) *Transact {
	item, err := t.WriteRecord(schemaName, data, true)
	if err != nil {
		return tr.fail(err)
	}
	tr.items = append(tr.items, types.TransactWriteItem{
		Put: &types.Put{TableName: aws.String(t.Name()), Item: item},
	})
	return tr
}

// PutRaw appends an arbitrary native value marshalled with the SDK rules,
// bypassing schema encoding.
func (tr *Transact) PutRaw(tableName string, value any) *Transact {
	item, err := attributevalue.MarshalMap(value)
	if err != nil {
		return tr.fail(NewError("marshal failed", WithCode(ErrType), WithCause(err)))
	}
	tr.items = append(tr.items, types.TransactWriteItem{
		Put: &types.Put{TableName: aws.String(tableName), Item: item},
	})
	return tr
}

// Delete appends a keyed delete.
func (tr *Transact) Delete(t *Table, schemaName string, data Item) *Transact {
	key := t.PrimaryKey(schemaName, data)
	if key == nil {
		return tr.fail(NewError("primary key does not resolve", WithCode(ErrMissing)))
	}
	tr.items = append(tr.items, types.TransactWriteItem{
		Delete: &types.Delete{TableName: aws.String(t.Name()), Key: key},
	})
	return tr
}

// Update appends an assembled update.
func (tr *Transact) Update(u *Update) *Transact {
	input, err := u.Build()
	if err != nil {
		return tr.fail(err)
	}
	tr.items = append(tr.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 input.TableName,
			Key:                       input.Key,
			UpdateExpression:          input.UpdateExpression,
			ExpressionAttributeNames:  input.ExpressionAttributeNames,
			ExpressionAttributeValues: input.ExpressionAttributeValues,
		},
	})
	return tr
}

// ConditionCheck appends a keyed condition that must hold for the whole
// transaction to commit.
func (tr *Transact) ConditionCheck(t *Table, schemaName string, data Item, f *Filter) *Transact {
	key := t.PrimaryKey(schemaName, data)
	if key == nil {
		return tr.fail(NewError("primary key does not resolve", WithCode(ErrMissing)))
	}
	st := NewState()
	expr, err := f.Write(st)
	if err != nil {
		return tr.fail(err)
	}
	tr.items = append(tr.items, types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName:                 aws.String(t.Name()),
			Key:                       key,
			ConditionExpression:       aws.String(expr),
			ExpressionAttributeNames:  st.Names(),
			ExpressionAttributeValues: st.Values(),
		},
	})
	return tr
}

// Build renders the TransactWriteItemsInput with an idempotency token.
func (tr *Transact) Build() (*dynamodb.TransactWriteItemsInput, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	if len(tr.items) == 0 {
		return nil, NewError("transaction is empty", WithCode(ErrValidation))
	}
	return &dynamodb.TransactWriteItemsInput{
		TransactItems:          tr.items,
		ClientRequestToken:     aws.String(uid.UID(24)),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	}, nil
}

// Transact executes the accumulated batch atomically.
func (c *Connect) Transact(ctx context.Context, tr *Transact) *Response {
	r := newResponse()
	input, err := tr.Build()
	if err != nil {
		return r.fail(err)
	}
	out, err := c.client.TransactWriteItems(ctx, input)
	if err != nil {
		return r.fail(err)
	}
	for i := range out.ConsumedCapacity {
		r.consume(&out.ConsumedCapacity[i])
	}
	r.Count = int32(len(input.TransactItems))
	return r
}
