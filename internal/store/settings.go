package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hazyhaar/marque/fault"
)

// SetSetting stores an arbitrary small configuration value under key,
// recording the value kind and update timestamp. Strings, ints and bools
// keep their native form; everything else round-trips through JSON.
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	if err := s.guard("store.SetSetting"); err != nil {
		return err
	}

	var str, kind string
	switch v := value.(type) {
	case string:
		str, kind = v, "string"
	case int:
		str, kind = strconv.Itoa(v), "int"
	case int64:
		str, kind = strconv.FormatInt(v, 10), "int"
	case bool:
		str, kind = strconv.FormatBool(v), "bool"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fault.New(fault.QueryFailed, "store.SetSetting",
				fmt.Errorf("encode %q: %w", key, err))
		}
		str, kind = string(b), "json"
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO settings (key, value, kind, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value, kind = excluded.kind, updated_at = excluded.updated_at`,
		key, str, kind, nowMilli())
	if err != nil {
		return fault.New(fault.QueryFailed, "store.SetSetting", err)
	}
	return nil
}

// GetSetting returns the stored setting for key, or nil when absent.
func (s *Store) GetSetting(ctx context.Context, key string) (*Setting, error) {
	if err := s.guard("store.GetSetting"); err != nil {
		return nil, err
	}
	row := s.DB.QueryRowContext(ctx,
		`SELECT key, value, kind, updated_at FROM settings WHERE key = ?`, key)

	var st Setting
	if err := row.Scan(&st.Key, &st.Value, &st.Kind, &st.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fault.New(fault.QueryFailed, "store.GetSetting", err)
	}
	return &st, nil
}

// DeleteSetting removes a setting; deleting an absent key is a no-op.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if err := s.guard("store.DeleteSetting"); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fault.New(fault.QueryFailed, "store.DeleteSetting", err)
	}
	return nil
}
