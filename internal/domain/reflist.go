package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// RefList is an ordered set of project ids stored in a json column.
type RefList []uuid.UUID

func (r RefList) Contains(id uuid.UUID) bool {
	for _, v := range r {
		if v == id {
			return true
		}
	}
	return false
}

// With returns the list with id appended, unless already present.
func (r RefList) With(id uuid.UUID) RefList {
	if r.Contains(id) {
		return r
	}
	return append(r, id)
}

// Without returns the list with every occurrence of id removed.
func (r RefList) Without(id uuid.UUID) RefList {
	out := make(RefList, 0, len(r))
	for _, v := range r {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// MarshalJSON always renders an array, never null.
func (r RefList) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]uuid.UUID(r))
}

// Scan implements sql.Scanner for reading from DB (json column).
func (r *RefList) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*r = RefList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for RefList")
	}
	if len(b) == 0 {
		*r = RefList{}
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*r = ids
	return nil
}

// Value implements driver.Valuer for writing to DB.
func (r RefList) Value() (driver.Value, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
