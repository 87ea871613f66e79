package agency

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed helpers shared by the per-collection accessors. Records travel to
// the engine as JSON and come back decoded into T.

func encode[T any](op, collection string, v T) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, invalid(op, collection, "", err)
	}
	return data, nil
}

func decodeAs[T any](collection string, data json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s record: %w", collection, err)
	}
	return v, nil
}

func decodeAll[T any](collection string, records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := decodeAs[T](collection, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func addAs[T any](ctx context.Context, db *DB, collection string, v T) (T, error) {
	var zero T
	data, err := encode("add", collection, v)
	if err != nil {
		return zero, err
	}
	stored, err := db.Add(ctx, collection, data)
	if err != nil {
		return zero, err
	}
	return decodeAs[T](collection, stored)
}

func putAs[T any](ctx context.Context, db *DB, collection string, v T) (T, error) {
	var zero T
	data, err := encode("update", collection, v)
	if err != nil {
		return zero, err
	}
	stored, err := db.Update(ctx, collection, data)
	if err != nil {
		return zero, err
	}
	return decodeAs[T](collection, stored)
}

func getAs[T any](ctx context.Context, db *DB, collection, key string) (T, bool, error) {
	var zero T
	data, ok, err := db.GetByID(ctx, collection, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := decodeAs[T](collection, data)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func listAs[T any](ctx context.Context, db *DB, collection string) ([]T, error) {
	records, err := db.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](collection, records)
}

func findAs[T any](ctx context.Context, db *DB, collection, field string, value any) ([]T, error) {
	records, err := db.Find(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](collection, records)
}

func replaceAs[T any](ctx context.Context, db *DB, collection string, items []T) error {
	records := make([]json.RawMessage, len(items))
	for i, item := range items {
		data, err := encode("replace", collection, item)
		if err != nil {
			return err
		}
		records[i] = data
	}
	return db.Replace(ctx, collection, records)
}
