package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestInspectHandler_ListsPrefix(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	// Given two messages and one membership
	req.NoError(db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte("msg:1"), []byte(`{"content":"hello"}`)); err != nil {
			return err
		}
		if err := txn.Set([]byte("msg:2"), []byte(`{"content":"world"}`)); err != nil {
			return err
		}
		return txn.Set([]byte("member:c1:alice"), []byte{})
	}))

	// When the messages are inspected with a limit of one
	rec := httptest.NewRecorder()
	InspectHandler(db, nil, "msg:").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/badger?limit=1", nil))

	// Then only the first message is listed
	req.Equal(http.StatusOK, rec.Code)
	var page inspectPage
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	req.Equal("msg:", page.Prefix)
	req.Equal(1, page.Count)
	req.Equal("msg:1", page.Items[0].Key)
	req.Equal("msg", page.Items[0].Type)
	req.JSONEq(`{"content":"hello"}`, string(page.Items[0].Value))
}

func TestDefaultMapper(t *testing.T) {
	req := require.New(t)

	row := DefaultMapper("member:c1:alice", nil)
	req.Equal("member", row.Type)
	req.Empty(row.Value)

	row = DefaultMapper("opaque", []byte{0xff, 0x01})
	req.Equal("raw", row.Type)
	req.Equal("Size: 2 bytes", row.Detail)
}
