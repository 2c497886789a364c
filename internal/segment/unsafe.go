package segment

import "unsafe"

// unsafeReinterpret views a mmap'd byte slice as a slice of T without
// copying. Callers must ensure data is at least n*sizeof(T) bytes and
// properly aligned for T, which holds here because array files always start
// their payload immediately after the fixed header at a page-aligned mmap
// base plus a constant offset.
func unsafeReinterpret[T any](data []byte, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}

// bytesOf reinterprets a typed slice's backing array as bytes, for writing
// array-file payloads without an element-by-element encode pass. Assumes a
// little-endian host, same as unsafeReinterpret's read path.
func bytesOf[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*size)
}

func int64sToBytes(s []int64) []byte     { return bytesOf(s) }
func int32sToBytes(s []int32) []byte     { return bytesOf(s) }
func float32sToBytes(s []float32) []byte { return bytesOf(s) }
func uint64sToBytes(s []uint64) []byte   { return bytesOf(s) }
