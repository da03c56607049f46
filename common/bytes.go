package common

import (
	"unsafe"
)

// SliceToBytes returns a byte view of a slice of fixed-size values for device uploads.
// The view shares memory with data and is only valid until data is next appended to or modified.
//
// Parameters:
//   - data: source slice
//
// Returns:
//   - []byte: byte view of data in machine byte order, or nil if data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// SizeOf returns the size in bytes of one T.
func SizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}
