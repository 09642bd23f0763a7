package internal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const defaultInspectLimit = 100

type InspectRow struct {
	Key    string          `json:"key"`
	Type   string          `json:"type"`
	Size   int             `json:"size"`
	Value  json.RawMessage `json:"value,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

type RowMapper func(key string, val []byte) InspectRow

type inspectPage struct {
	Prefix string       `json:"prefix"`
	Count  int          `json:"count"`
	Items  []InspectRow `json:"items"`
}

// InspectHandler lists the Badger entries under ?prefix= (at most ?limit=).
// Mounted only in debug mode.
func InspectHandler(db *badger.DB, mapper RowMapper, defaultPrefix string) http.Handler {
	if mapper == nil {
		mapper = DefaultMapper
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}
		limit := defaultInspectLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		page := inspectPage{Prefix: prefix, Items: []InspectRow{}}
		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(page.Items) < limit; it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				page.Items = append(page.Items, mapper(string(item.Key()), val))
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		page.Count = len(page.Items)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	})
}

// DefaultMapper types a row by its key prefix and inlines JSON values.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{Key: key, Type: "raw", Size: len(val)}
	if kind, _, ok := strings.Cut(key, ":"); ok {
		row.Type = kind
	}
	if json.Valid(val) && len(val) > 0 {
		row.Value = val
	} else if len(val) > 0 {
		row.Detail = "Size: " + strconv.Itoa(len(val)) + " bytes"
	}
	return row
}
