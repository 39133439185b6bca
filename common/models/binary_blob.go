package models

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
)

// BinaryBlob stores binary column values hex-encoded. goqu interpolates raw
// []byte into SQL literals and mangles arbitrary bytes, so the Valuer writes
// a hex string and the Scanner decodes it on the way back out.
type BinaryBlob []byte

func (m *BinaryBlob) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var str string
	switch t := src.(type) {
	case []uint8: // postgres
		str = string(t)
	case string: // sqlite
		str = t
	default:
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return fmt.Errorf("error decoding hex: %w", err)
	}
	*m = decoded
	return nil
}

func (m BinaryBlob) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return hex.EncodeToString(m), nil
}
