package store

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/db"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/logger"
)

// Query constants
const (
	DataItemUpsertQuery = `
		INSERT INTO data_items (id, kind, parent_id, payload, seq)
		VALUES (?, ?, NULLIF(?, ''), ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM data_items))
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			parent_id = COALESCE(excluded.parent_id, data_items.parent_id)`

	DataItemSelectQuery = `
		SELECT kind, payload FROM data_items WHERE id = ?`

	DataItemChildrenQuery = `
		SELECT id, payload FROM data_items
		WHERE parent_id = ? AND kind = ?
		ORDER BY seq ASC`

	DataItemCountQuery = `
		SELECT COUNT(*) FROM data_items`
)

// SQLStore implements core.Store on the data_items table. Items are encoded
// with the codec registered for their kind; attributes are persisted as
// child rows of their annotation and re-attached when it is loaded.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSQLStore creates a store over an already migrated database
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) *SQLStore {
	if log == nil {
		log = logger.ComponentLogger("store.sql")
	}
	return &SQLStore{
		db:     db,
		logger: log,
	}
}

// Set upserts item
func (s *SQLStore) Set(item core.DataItem, parentID string) error {
	if item == nil {
		return errors.NewInvalidRequestError("cannot store nil data item")
	}
	kinded, ok := item.(core.Kinded)
	if !ok {
		return errors.NewInvalidRequestError("data item %s (%T) has no kind and cannot be persisted", item.ID(), item)
	}

	codec, err := lookupCodec(kinded.Kind())
	if err != nil {
		return err
	}
	payload, err := codec.Encode(item)
	if err != nil {
		return errors.Wrapf(err, "encode %s %s", kinded.Kind(), item.ID())
	}

	if _, err := s.db.Exec(DataItemUpsertQuery, item.ID(), kinded.Kind(), parentID, string(payload)); err != nil {
		return errors.Wrapf(err, "failed to upsert data item %s", item.ID())
	}

	s.logger.Debugw("Stored data item",
		logger.FieldItemID, item.ID(),
		logger.FieldKind, kinded.Kind(),
	)
	return nil
}

// Get loads the item stored under id. Annotations come back with their
// attributes attached and their attribute container bound to this store.
func (s *SQLStore) Get(id string) (core.DataItem, error) {
	var kind, payload string
	err := s.db.QueryRow(DataItemSelectQuery, id).Scan(&kind, &payload)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("no data item with id %s", id)
	}
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return nil, errors.Mark(errors.Wrapf(err, "get %s", id), db.ErrDatabaseClosed)
		}
		return nil, errors.Wrapf(err, "failed to query data item %s", id)
	}

	codec, err := lookupCodec(kind)
	if err != nil {
		return nil, err
	}
	item, err := codec.Decode(id, []byte(payload))
	if err != nil {
		return nil, err
	}

	if holder, ok := item.(core.AttributeHolder); ok {
		if err := s.attachAttributes(holder); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *SQLStore) attachAttributes(holder core.AttributeHolder) error {
	codec, err := lookupCodec(core.KindAttribute)
	if err != nil {
		return err
	}

	rows, err := s.db.Query(DataItemChildrenQuery, holder.ID(), core.KindAttribute)
	if err != nil {
		return errors.Wrapf(err, "failed to query attributes of %s", holder.ID())
	}

	// Drain rows before writing: an in-memory database only lives on one
	// connection.
	var loaded []*core.Attribute
	for rows.Next() {
		var attrID, payload string
		if err := rows.Scan(&attrID, &payload); err != nil {
			rows.Close()
			return errors.Wrap(err, "failed to scan attribute row")
		}
		item, err := codec.Decode(attrID, []byte(payload))
		if err != nil {
			rows.Close()
			return err
		}
		loaded = append(loaded, item.(*core.Attribute))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return errors.Wrapf(err, "failed to iterate attributes of %s", holder.ID())
	}
	rows.Close()

	attrs := holder.Attrs()
	for _, attr := range loaded {
		if _, err := attrs.GetByID(attr.ID()); err == nil {
			continue
		}
		if err := attrs.Add(attr); err != nil {
			return err
		}
	}
	return attrs.Bind(s)
}

// Count returns the number of stored rows
func (s *SQLStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(DataItemCountQuery).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count data items")
	}
	return n, nil
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
