package vaultdb

import (
	"encoding/binary"
	"errors"
)

// encodeRecord serializes the value part of a record:
//
//	spend_delay (2 bytes, big endian) || address
func encodeRecord(r *Record) []byte {
	value := make([]byte, 2+len(r.Address))
	binary.BigEndian.PutUint16(value[:2], r.SpendDelay)
	copy(value[2:], r.Address)

	return value
}

func decodeRecord(label string, value []byte) (*Record, error) {
	if len(value) < 3 {
		return nil, errors.New("record too short")
	}

	return &Record{
		Label:      label,
		Address:    string(value[2:]),
		SpendDelay: binary.BigEndian.Uint16(value[:2]),
	}, nil
}
