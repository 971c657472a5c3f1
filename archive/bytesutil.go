package archive

import (
	"encoding/binary"
	"math"
)

func u16le(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func u32le(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
func u64le(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }
func f64le(v float64) []byte { return u64le(math.Float64bits(v)) }

func u16from(b []byte) uint16  { return binary.LittleEndian.Uint16(b) }
func u32from(b []byte) uint32  { return binary.LittleEndian.Uint32(b) }
func u64from(b []byte) uint64  { return binary.LittleEndian.Uint64(b) }
func f64from(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
