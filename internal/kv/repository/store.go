package repository

import "dashgg/internal/kv"

var (
	_ kv.Store = (*MemoryStore)(nil)
	_ kv.Store = (*PostgresStore)(nil)
	_ kv.Store = (*DynamoStore)(nil)
)
